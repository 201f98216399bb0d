// Package doctor is an interactive walkthrough that verifies USB
// communication and hardware event detection step by step. It consumes the
// same transport and decoder as the daemon but is a guided manual test
// harness, not part of the event loop.
package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/s1500tools/s1500d/internal/protocol"
	"github.com/s1500tools/s1500d/internal/scanner"
)

const (
	stepTimeout  = 15 * time.Second
	pollInterval = 100 * time.Millisecond
)

// waitEnter blocks until the operator presses Enter.
func waitEnter() {
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}

// waitFor polls until the predicate matches or the step times out,
// printing a progress dot every 500ms.
func waitFor(ctx context.Context, dev *scanner.Device, pred func(protocol.Snapshot) bool) bool {
	start := time.Now()
	dots := 0
	fmt.Print("      Polling")
	for {
		if s, err := dev.HWStatus(ctx); err == nil && pred(s) {
			return true
		}
		if time.Since(start) >= stepTimeout {
			return false
		}
		if n := int(time.Since(start) / (500 * time.Millisecond)); n > dots {
			fmt.Print(".")
			dots = n
		}
		time.Sleep(pollInterval)
	}
}

func report(ok bool, passed, failed *int) {
	if ok {
		fmt.Println(" detected!       PASS")
		*passed++
	} else {
		fmt.Println(" timed out       FAIL")
		*failed++
	}
}

// Run executes the six-step hardware verification.
func Run(logger *slog.Logger) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("doctor is interactive and needs a terminal")
	}

	ctx := context.Background()
	usb := scanner.NewUSB(logger)
	defer usb.Close()

	fmt.Println("s1500d doctor")
	fmt.Println("=============")
	fmt.Println()
	fmt.Println("Verifying USB communication and hardware event detection")
	fmt.Println("for the Fujitsu ScanSnap S1500.")
	fmt.Println()

	// 1. USB connection
	fmt.Print("[1/6] USB connection .......... ")
	dev, err := usb.Open(ctx)
	if err != nil {
		fmt.Println("FAIL")
		return fmt.Errorf("cannot open scanner: %w", err)
	}
	if dev == nil {
		fmt.Println("FAIL")
		fmt.Println()
		fmt.Println("      Scanner not found (04c5:11a2).")
		fmt.Println("      Is the ADF lid open? Check: lsusb | grep 04c5")
		return errors.New("scanner not found")
	}
	defer dev.Close()
	fmt.Println("ok")

	// 2. GET_HW_STATUS
	fmt.Print("[2/6] Hardware status ......... ")
	baseline, err := dev.HWStatus(ctx)
	if err != nil {
		fmt.Println("FAIL")
		return fmt.Errorf("GET_HW_STATUS failed: %w", err)
	}
	fmt.Printf("ok  (paper=%v, button=%v)\n", baseline.Paper, baseline.Button())

	passed, failed := 2, 0

	// 3. Paper detect
	fmt.Println()
	fmt.Println("[3/6] Paper detect")
	if baseline.Paper {
		fmt.Print("      Paper already in feeder — remove it first, then press Enter: ")
		waitEnter()
		if !waitFor(ctx, dev, func(s protocol.Snapshot) bool { return !s.Paper }) {
			fmt.Println(" timed out — could not establish empty baseline")
		}
		fmt.Println()
	}
	fmt.Print("      Press Enter, then insert a sheet of paper: ")
	waitEnter()
	report(waitFor(ctx, dev, func(s protocol.Snapshot) bool { return s.Paper }), &passed, &failed)

	// 4. Paper remove
	fmt.Println()
	fmt.Println("[4/6] Paper remove")
	fmt.Print("      Press Enter, then remove the paper: ")
	waitEnter()
	report(waitFor(ctx, dev, func(s protocol.Snapshot) bool { return !s.Paper }), &passed, &failed)

	// 5. Button press
	fmt.Println()
	fmt.Println("[5/6] Button press")
	if baseline.Button() {
		fmt.Print("      Button appears held — release it first, then press Enter: ")
		waitEnter()
		waitFor(ctx, dev, func(s protocol.Snapshot) bool { return !s.Button() })
		fmt.Println()
	}
	fmt.Print("      Press Enter, then press and HOLD the scan button: ")
	waitEnter()
	report(waitFor(ctx, dev, func(s protocol.Snapshot) bool { return s.Button() }), &passed, &failed)

	// 6. Button release
	fmt.Println()
	fmt.Println("[6/6] Button release")
	fmt.Println("      Release the button now.")
	report(waitFor(ctx, dev, func(s protocol.Snapshot) bool { return !s.Button() }), &passed, &failed)

	fmt.Println()
	fmt.Println("=============")
	if failed == 0 {
		fmt.Printf("All %d checks passed. Scanner is working correctly.\n", passed)
		return nil
	}
	fmt.Printf("%d/%d passed, %d failed.\n", passed, passed+failed, failed)
	return fmt.Errorf("%d hardware checks failed", failed)
}
