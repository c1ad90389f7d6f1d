//go:build !headless
// +build !headless

package graphics

// Test helper methods for accessing internal state during testing

// GetGameForTesting returns the internal game instance for testing purposes
func (w *EbitengineWindow) GetGameForTesting() *EbitengineGame {
	return w.game
}

// GetEmulatorUpdateFuncForTesting returns the emulator update function for testing
func (w *EbitengineWindow) GetEmulatorUpdateFuncForTesting() func() error {
	return w.emulatorUpdateFunc
}

// PendingFrameForTesting returns the frame waiting for upload and its size
func (w *EbitengineWindow) PendingFrameForTesting() (pix []byte, width, height int) {
	if w.game == nil {
		return nil, 0, 0
	}
	return w.game.pending, w.game.frameWidth, w.game.frameHeight
}
