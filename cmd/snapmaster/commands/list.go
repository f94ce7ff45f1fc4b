package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current foreground window and backend capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		info, err := a.detector.CurrentApp(false)
		if err != nil {
			return err
		}

		fmt.Printf("App:        %s\n", info.Name)
		fmt.Printf("Title:      %s\n", info.Title)
		fmt.Printf("PID:        %d\n", info.PID)
		fmt.Printf("Geometry:   %dx%d at (%d,%d)\n",
			info.Rect.Width, info.Rect.Height, info.Rect.X, info.Rect.Y)
		fmt.Printf("Fullscreen: %v\n", info.Fullscreen)
		if info.IsGame {
			fmt.Println("Class:      game")
		}
		if info.IsBrowser {
			fmt.Println("Class:      browser")
		}

		caps := a.detector.Capabilities()
		fmt.Printf("\nBackend %s capabilities:\n", a.backend.Name())
		fmt.Printf("  window detection:     %v\n", caps.WindowDetection)
		fmt.Printf("  fullscreen detection: %v\n", caps.FullscreenDetection)
		fmt.Printf("  window geometry:      %v\n", caps.WindowGeometry)
		fmt.Printf("  app classification:   %v\n", caps.AppClassification)
		fmt.Printf("  precise coordinates:  %v\n", caps.PreciseCoordinates)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
