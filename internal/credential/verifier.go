// Package credential verifies which generation capabilities a credential can use
// and stores the credential once it is known to work.
package credential

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Conceptual-Machines/songsmith-api/internal/llm"
	"github.com/Conceptual-Machines/songsmith-api/internal/logger"
	"github.com/Conceptual-Machines/songsmith-api/internal/models"
	"github.com/Conceptual-Machines/songsmith-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// defaultProbeTimeout bounds a single capability probe
const defaultProbeTimeout = 30 * time.Second

// ProbeObserver is notified after every capability probe
type ProbeObserver interface {
	ObserveProbe(ctx context.Context, capability models.Capability, duration time.Duration, err error)
}

// Verifier runs capability probes and owns the current TrustState
type Verifier struct {
	provider llm.Provider
	store    store.Adapter
	observer ProbeObserver

	probeTimeout time.Duration

	mu    sync.Mutex
	state models.TrustState
	run   uint64

	// persistMu orders credential writes of overlapping runs
	persistMu sync.Mutex
}

// NewVerifier creates a verifier in the idle state
func NewVerifier(provider llm.Provider, adapter store.Adapter) *Verifier {
	return &Verifier{
		provider:     provider,
		store:        adapter,
		probeTimeout: defaultProbeTimeout,
		state:        models.InitialTrustState(),
	}
}

// SetProbeTimeout bounds each capability probe. A non-positive value leaves
// probes bounded only by the caller's context.
func (v *Verifier) SetProbeTimeout(d time.Duration) {
	v.probeTimeout = d
}

// SetObserver installs a probe observer
func (v *Verifier) SetObserver(o ProbeObserver) {
	v.observer = o
}

// State returns a copy of the latest published trust state
func (v *Verifier) State() models.TrustState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return copyState(v.state)
}

// Stored reports whether a working credential is persisted
func (v *Verifier) Stored(ctx context.Context) (bool, error) {
	_, ok, err := v.store.GetCredential(ctx)
	return ok, err
}

// Verify probes text, image and pro image capabilities concurrently and waits
// for all three. On full or partial success the credential is persisted once.
// A failure aggregate is returned with a *VerificationFailure.
func (v *Verifier) Verify(ctx context.Context, credential string) (models.TrustState, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return v.State(), ErrEmptyCredential
	}

	run := v.begin()
	logger.Info("Credential verification started", logger.Fields{"run": run, "provider": v.provider.Name()})

	results, err := v.probeAll(ctx, credential)
	state := models.TrustState{Aggregate: models.AggregateIdle}
	if err != nil {
		state = unexpectedFailure(err)
	} else {
		for _, c := range models.Capabilities {
			if results[c] == nil {
				state.SetStatus(c, models.StatusAvailable)
				continue
			}
			state.SetStatus(c, models.StatusUnavailable)
			if state.Failures == nil {
				state.Failures = make(map[models.Capability]string)
			}
			state.Failures[c] = results[c].Error()
		}
		state.Aggregate = Aggregate(state.Text, state.Image, state.ProImage)
	}

	if state.Aggregate.CanProceed() {
		// the request deadline may already have fired on a slow image probe
		persisted, perr := v.persist(context.WithoutCancel(ctx), run, credential)
		if !persisted {
			return state, ErrRunSuperseded
		}
		if perr != nil {
			logger.Warn("Credential verified but not stored", logger.Fields{"error": perr.Error()})
			state.Warning = perr.Error()
		}
	}

	if !v.publish(run, state) {
		return state, ErrRunSuperseded
	}

	logger.Info("Credential verification finished", logger.Fields{
		"run":       run,
		"aggregate": string(state.Aggregate),
		"text":      string(state.Text),
		"image":     string(state.Image),
		"pro_image": string(state.ProImage),
	})

	if state.Aggregate == models.AggregateFailure {
		v.release(credential)
		cause := err
		if cause == nil {
			cause = results[models.CapabilityText]
		}
		return copyState(state), &VerificationFailure{State: copyState(state), Err: cause}
	}
	return copyState(state), nil
}

// Delete clears the stored credential and resets the state to idle
func (v *Verifier) Delete(ctx context.Context) (models.TrustState, error) {
	v.persistMu.Lock()
	if stored, ok, gerr := v.store.GetCredential(ctx); gerr == nil && ok {
		v.release(stored)
	}
	err := v.store.ClearCredential(ctx)
	v.persistMu.Unlock()

	v.mu.Lock()
	v.run++
	v.state = models.InitialTrustState()
	state := copyState(v.state)
	v.mu.Unlock()

	if err != nil {
		logger.Warn("Failed to clear stored credential", logger.Fields{"error": err.Error()})
		state.Warning = err.Error()
		return state, err
	}
	logger.Info("Credential cleared", nil)
	return state, nil
}

// begin starts a new run from idle and marks every capability as probing
func (v *Verifier) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.run++
	v.state = models.TrustState{
		Aggregate: models.AggregateTesting,
		Text:      models.StatusProbing,
		Image:     models.StatusProbing,
		ProImage:  models.StatusProbing,
	}
	return v.run
}

func (v *Verifier) latest(run uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.run == run
}

func (v *Verifier) publish(run uint64, state models.TrustState) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.run != run {
		return false
	}
	v.state = copyState(state)
	return true
}

// persist stores the credential unless a newer run has started.
// It reports false when the run was superseded.
func (v *Verifier) persist(ctx context.Context, run uint64, credential string) (bool, error) {
	v.persistMu.Lock()
	defer v.persistMu.Unlock()
	if !v.latest(run) {
		return false, nil
	}
	if err := v.store.SetCredential(ctx, credential); err != nil {
		return true, err
	}
	return true, nil
}

// release lets the backend drop any client it built for credential
func (v *Verifier) release(credential string) {
	if cache, ok := v.provider.(llm.CredentialCache); ok {
		cache.Forget(credential)
	}
}

// probeAll fans the three probes out and joins them. Each probe runs under its
// own timeout and its error, a timeout included, is kept for that capability
// alone. The returned error is reserved for a panicking probe or a context
// that ended before any probe could succeed.
func (v *Verifier) probeAll(ctx context.Context, credential string) (map[models.Capability]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("verification interrupted: %w", err)
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[models.Capability]error, len(models.Capabilities))
	)
	for _, c := range models.Capabilities {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s probe panicked: %v", c, r)
				}
			}()

			pctx, cancel := v.probeContext(ctx)
			defer cancel()

			start := time.Now()
			perr := v.provider.ProbeCapability(pctx, credential, c)
			if v.observer != nil {
				v.observer.ObserveProbe(ctx, c, time.Since(start), perr)
			}

			mu.Lock()
			defer mu.Unlock()
			if perr != nil {
				results[c] = &ProbeFailure{Capability: c, Err: perr}
			} else {
				results[c] = nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil && !anySucceeded(results) {
		return nil, fmt.Errorf("verification interrupted: %w", err)
	}
	return results, nil
}

func (v *Verifier) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.probeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.probeTimeout)
}

func anySucceeded(results map[models.Capability]error) bool {
	for _, err := range results {
		if err == nil {
			return true
		}
	}
	return false
}

// unexpectedFailure forces every capability unavailable
func unexpectedFailure(err error) models.TrustState {
	state := models.TrustState{
		Aggregate: models.AggregateFailure,
		Failures:  make(map[models.Capability]string, len(models.Capabilities)),
	}
	for _, c := range models.Capabilities {
		state.SetStatus(c, models.StatusUnavailable)
		state.Failures[c] = err.Error()
	}
	return state
}

func copyState(s models.TrustState) models.TrustState {
	if s.Failures != nil {
		failures := make(map[models.Capability]string, len(s.Failures))
		for k, v := range s.Failures {
			failures[k] = v
		}
		s.Failures = failures
	}
	return s
}
