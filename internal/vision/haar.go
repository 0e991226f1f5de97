//go:build !gocv

package vision

import (
	"errors"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func newHaarDetector(cfg config.DetectorConfig) (Detector, error) {
	return nil, errors.New("haar detector requires a build with the gocv tag")
}
