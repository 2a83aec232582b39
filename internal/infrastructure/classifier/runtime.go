package classifier

import (
	"path/filepath"
	"runtime"

	"github.com/chewxy/math32"
)

// DefaultLibraryPath путь к onnxruntime для текущей платформы в ./third_party.
func DefaultLibraryPath() string {
	return filepath.Join("third_party", libraryName(runtime.GOOS, runtime.GOARCH))
}

func libraryName(goos, goarch string) string {
	switch goos {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		if goarch == "arm64" {
			return "onnxruntime_arm64.so"
		}
		return "onnxruntime.so"
	}
}

// Sigmoid переводит логит в вероятность.
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// ApplySigmoid применяет Sigmoid на месте.
func ApplySigmoid(scores []float32) {
	for i, s := range scores {
		scores[i] = Sigmoid(s)
	}
}
