package cmd

import (
	"log/slog"

	"github.com/s1500tools/s1500d/internal/doctor"
)

// Doctor walks the operator through verifying every sensor the daemon
// relies on: USB communication, paper detect/remove, button press/release.
type Doctor struct{}

func (Doctor) Run(logger *slog.Logger) error {
	return doctor.Run(logger)
}
