package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/llm"
	"github.com/timmy/quill/internal/logger"
)

// DefaultTolerance is the accepted deviation from the target length, in
// characters.
const DefaultTolerance = 200

// AdjustAction names what the adjuster did.
type AdjustAction string

const (
	AdjustNone    AdjustAction = "none"
	AdjustExpand  AdjustAction = "expand"
	AdjustShorten AdjustAction = "shorten"
)

// AdjustRequest is the input of one adjustment. Zero Target and Tolerance
// fall back to the defaults.
type AdjustRequest struct {
	Text      string
	Target    int
	Tolerance int
	Model     string
}

// AdjustResult carries the adjusted text. Err is set when the correction
// call failed; Text is then the original text.
type AdjustResult struct {
	Text      string
	Action    AdjustAction
	Usage     domain.Usage
	Length    int
	Converged bool
	Err       error
}

// LengthAdjuster brings generated text toward a target character count with
// at most one correction call.
type LengthAdjuster struct {
	tolerance int
	timeout   time.Duration
}

// NewLengthAdjuster creates a LengthAdjuster. A non-positive tolerance uses
// DefaultTolerance; a non-positive timeout leaves the call unbounded apart
// from the caller's context.
func NewLengthAdjuster(tolerance int, timeout time.Duration) *LengthAdjuster {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &LengthAdjuster{tolerance: tolerance, timeout: timeout}
}

// Within reports whether length lies in [target-tolerance, target+tolerance].
func Within(length, target, tolerance int) bool {
	return length >= target-tolerance && length <= target+tolerance
}

// Adjust checks the length of req.Text and, when it falls outside the band,
// asks client for one expand or shorten pass. The pass result is returned
// whether or not it lands inside the band.
func (a *LengthAdjuster) Adjust(ctx context.Context, client llm.Client, req AdjustRequest) AdjustResult {
	target := req.Target
	if target <= 0 {
		target = domain.DefaultTargetLength
	}
	tolerance := req.Tolerance
	if tolerance <= 0 {
		tolerance = a.tolerance
	}

	current := domain.CharCount(req.Text)
	if Within(current, target, tolerance) {
		return AdjustResult{Text: req.Text, Action: AdjustNone, Length: current, Converged: true}
	}

	mode := llm.ReviseExpand
	action := AdjustExpand
	if current > target+tolerance {
		mode = llm.ReviseShorten
		action = AdjustShorten
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := client.Revise(callCtx, llm.ReviseRequest{
		Mode:          mode,
		Text:          req.Text,
		CurrentLength: current,
		TargetLength:  target,
		Model:         req.Model,
	})
	if err != nil {
		logger.CtxWarn(ctx, "Length correction failed, keeping original text: action=%s, length=%d, target=%d, error=%v",
			action, current, target, err)
		return AdjustResult{
			Text:   req.Text,
			Action: action,
			Length: current,
			Err:    fmt.Errorf("%w: %s: %v", ErrLengthCorrection, action, err),
		}
	}

	length := domain.CharCount(resp.Text)
	converged := Within(length, target, tolerance)
	entry := logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldSize:       length,
		logger.FieldTokens:     resp.Usage.TotalTokens,
	})
	if converged {
		entry.Info(ctx, "Length corrected: action=%s, from=%d, to=%d, target=%d", action, current, length, target)
	} else {
		entry.Warn(ctx, "Length correction did not converge: action=%s, from=%d, to=%d, target=%d", action, current, length, target)
	}

	return AdjustResult{
		Text:      resp.Text,
		Action:    action,
		Usage:     resp.Usage,
		Length:    length,
		Converged: converged,
	}
}
