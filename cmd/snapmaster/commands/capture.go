package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/snapmaster/internal/screenshot"
)

var (
	captureOutput string
	captureFolder string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a single screenshot",
}

var captureFullscreenCmd = &cobra.Command{
	Use:   "fullscreen",
	Short: "Capture the entire screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(a *app) (string, error) {
			return a.shots.CaptureFullscreen(captureOptions())
		})
	},
}

var captureWindowCmd = &cobra.Command{
	Use:   "window",
	Short: "Capture the foreground window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(a *app) (string, error) {
			return a.shots.CaptureActiveWindow(captureOptions())
		})
	},
}

var captureAreaCmd = &cobra.Command{
	Use:   "area",
	Short: "Select a region interactively and capture it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(a *app) (string, error) {
			return a.shots.CaptureArea(captureOptions())
		})
	},
}

var captureAppCmd = &cobra.Command{
	Use:   "app <name>",
	Short: "Capture a window of the named application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(a *app) (string, error) {
			return a.shots.CaptureApp(args[0], captureOptions())
		})
	},
}

func init() {
	captureCmd.PersistentFlags().StringVarP(&captureOutput, "output", "o", "", "save to this exact file instead of generating a name")
	captureCmd.PersistentFlags().StringVar(&captureFolder, "folder", "", "save into this folder instead of the configured one")
	captureCmd.AddCommand(captureFullscreenCmd, captureWindowCmd, captureAreaCmd, captureAppCmd)
	rootCmd.AddCommand(captureCmd)
}

func captureOptions() screenshot.Options {
	return screenshot.Options{SavePath: captureOutput, Folder: captureFolder}
}

func oneShot(op func(a *app) (string, error)) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	path, err := op(a)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
