package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Conceptual-Machines/songsmith-api/internal/models"
)

const (
	keyCredential        = "credential"
	keyProjects          = "projects"
	keySamplePrompts     = "sample_prompts"
	keyInstrumentPresets = "instrument_presets"
	keyLegibility        = "legibility_mode"
)

// Adapter is the persistence contract the rest of the service depends on.
// Every error it returns is a *PersistenceFailure.
type Adapter interface {
	GetCredential(ctx context.Context) (string, bool, error)
	SetCredential(ctx context.Context, credential string) error
	ClearCredential(ctx context.Context) error

	GetProjects(ctx context.Context) ([]*models.Project, error)
	SetProjects(ctx context.Context, projects []*models.Project) error

	// GetSamplePrompts reports false when no custom list was ever stored
	GetSamplePrompts(ctx context.Context) ([]models.SamplePrompt, bool, error)
	SetSamplePrompts(ctx context.Context, prompts []models.SamplePrompt) error

	GetInstrumentPresets(ctx context.Context) ([]models.InstrumentPreset, error)
	SetInstrumentPresets(ctx context.Context, presets []models.InstrumentPreset) error

	GetLegibility(ctx context.Context) (bool, error)
	SetLegibility(ctx context.Context, enabled bool) error

	Close() error
}

// PersistenceFailure reports a store read or write that did not complete.
// Callers treat it as a warning: in-memory state stays authoritative.
type PersistenceFailure struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence %s %s failed: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }

// IsPersistenceFailure reports whether err carries a *PersistenceFailure
func IsPersistenceFailure(err error) bool {
	var pf *PersistenceFailure
	return errors.As(err, &pf)
}

// KVAdapter implements Adapter over any KV backend
type KVAdapter struct {
	kv     KV
	codec  Codec
	prefix string
}

// NewKVAdapter creates an adapter storing every key under prefix
func NewKVAdapter(kv KV, codec Codec, prefix string) *KVAdapter {
	if codec == nil {
		codec = Base64Codec{}
	}
	return &KVAdapter{kv: kv, codec: codec, prefix: prefix}
}

func (a *KVAdapter) key(name string) string {
	return a.prefix + name
}

func (a *KVAdapter) GetCredential(ctx context.Context) (string, bool, error) {
	stored, ok, err := a.kv.Get(ctx, a.key(keyCredential))
	if err != nil {
		return "", false, &PersistenceFailure{Op: "get", Key: keyCredential, Err: err}
	}
	if !ok || stored == "" {
		return "", false, nil
	}
	plain, err := a.codec.Decode(stored)
	if err != nil {
		return "", false, &PersistenceFailure{Op: "decode", Key: keyCredential, Err: err}
	}
	return plain, true, nil
}

func (a *KVAdapter) SetCredential(ctx context.Context, credential string) error {
	encoded, err := a.codec.Encode(credential)
	if err != nil {
		return &PersistenceFailure{Op: "encode", Key: keyCredential, Err: err}
	}
	if err := a.kv.Set(ctx, a.key(keyCredential), encoded); err != nil {
		return &PersistenceFailure{Op: "set", Key: keyCredential, Err: err}
	}
	return nil
}

func (a *KVAdapter) ClearCredential(ctx context.Context) error {
	if err := a.kv.Delete(ctx, a.key(keyCredential)); err != nil {
		return &PersistenceFailure{Op: "delete", Key: keyCredential, Err: err}
	}
	return nil
}

func (a *KVAdapter) GetProjects(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	if _, err := a.getJSON(ctx, keyProjects, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (a *KVAdapter) SetProjects(ctx context.Context, projects []*models.Project) error {
	if projects == nil {
		projects = []*models.Project{}
	}
	return a.setJSON(ctx, keyProjects, projects)
}

func (a *KVAdapter) GetSamplePrompts(ctx context.Context) ([]models.SamplePrompt, bool, error) {
	var prompts []models.SamplePrompt
	ok, err := a.getJSON(ctx, keySamplePrompts, &prompts)
	if err != nil {
		return nil, false, err
	}
	return prompts, ok, nil
}

func (a *KVAdapter) SetSamplePrompts(ctx context.Context, prompts []models.SamplePrompt) error {
	if prompts == nil {
		prompts = []models.SamplePrompt{}
	}
	return a.setJSON(ctx, keySamplePrompts, prompts)
}

func (a *KVAdapter) GetInstrumentPresets(ctx context.Context) ([]models.InstrumentPreset, error) {
	var presets []models.InstrumentPreset
	if _, err := a.getJSON(ctx, keyInstrumentPresets, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

func (a *KVAdapter) SetInstrumentPresets(ctx context.Context, presets []models.InstrumentPreset) error {
	if presets == nil {
		presets = []models.InstrumentPreset{}
	}
	return a.setJSON(ctx, keyInstrumentPresets, presets)
}

func (a *KVAdapter) GetLegibility(ctx context.Context) (bool, error) {
	v, ok, err := a.kv.Get(ctx, a.key(keyLegibility))
	if err != nil {
		return false, &PersistenceFailure{Op: "get", Key: keyLegibility, Err: err}
	}
	if !ok {
		return false, nil
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, &PersistenceFailure{Op: "decode", Key: keyLegibility, Err: err}
	}
	return enabled, nil
}

func (a *KVAdapter) SetLegibility(ctx context.Context, enabled bool) error {
	if err := a.kv.Set(ctx, a.key(keyLegibility), strconv.FormatBool(enabled)); err != nil {
		return &PersistenceFailure{Op: "set", Key: keyLegibility, Err: err}
	}
	return nil
}

func (a *KVAdapter) Close() error {
	return a.kv.Close()
}

func (a *KVAdapter) getJSON(ctx context.Context, name string, dst any) (bool, error) {
	raw, ok, err := a.kv.Get(ctx, a.key(name))
	if err != nil {
		return false, &PersistenceFailure{Op: "get", Key: name, Err: err}
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, &PersistenceFailure{Op: "decode", Key: name, Err: err}
	}
	return true, nil
}

func (a *KVAdapter) setJSON(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &PersistenceFailure{Op: "encode", Key: name, Err: err}
	}
	if err := a.kv.Set(ctx, a.key(name), string(raw)); err != nil {
		return &PersistenceFailure{Op: "set", Key: name, Err: err}
	}
	return nil
}
