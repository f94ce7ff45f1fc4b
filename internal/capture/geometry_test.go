package capture

import (
	"testing"

	"github.com/bryanchriswhite/snapmaster/internal/window"
)

func TestClampToScreen(t *testing.T) {
	screen := window.Rect{Width: 1920, Height: 1080}

	tests := []struct {
		name string
		in   window.Rect
		want window.Rect
	}{
		{
			name: "fully on-screen",
			in:   window.Rect{X: 100, Y: 100, Width: 800, Height: 600},
			want: window.Rect{X: 100, Y: 100, Width: 800, Height: 600},
		},
		{
			name: "hangs off the left edge",
			in:   window.Rect{X: -40, Y: 0, Width: 800, Height: 600},
			want: window.Rect{X: 0, Y: 0, Width: 760, Height: 600},
		},
		{
			name: "hangs off the bottom right",
			in:   window.Rect{X: 1800, Y: 1000, Width: 400, Height: 300},
			want: window.Rect{X: 1800, Y: 1000, Width: 120, Height: 80},
		},
		{
			name: "entirely off-screen collapses",
			in:   window.Rect{X: 3000, Y: 0, Width: 400, Height: 300},
			want: window.Rect{X: 3000, Y: 0, Width: 0, Height: 300},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampToScreen(tt.in, screen); got != tt.want {
				t.Errorf("clampToScreen = %+v, want %+v", got, tt.want)
			}
		})
	}
}
