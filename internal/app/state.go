package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// ExecutionStage records how far an install got.
type ExecutionStage string

const (
	StageGate      ExecutionStage = "gate"
	StageInstall   ExecutionStage = "install"
	StageBootstrap ExecutionStage = "bootstrap"
	StageCompleted ExecutionStage = "completed"
)

const (
	ReceiptFileName      = ".den-install.json"
	ReceiptSchemaVersion = "1.0"
)

// Receipt is persisted in the install prefix once the gate has passed.
type Receipt struct {
	SchemaVersion       string         `json:"schema_version"`
	RunID               string         `json:"run_id"`
	Version             string         `json:"version"`
	Commit              string         `json:"commit,omitempty"`
	LastSuccessfulStage ExecutionStage `json:"last_successful_stage"`
	CreatedAt           time.Time      `json:"created_at"`
	LastUpdatedAt       time.Time      `json:"last_updated_at"`
}

func receiptPath(prefix string) string {
	return filepath.Join(prefix, ReceiptFileName)
}

// LoadReceipt returns nil without error when prefix has no receipt.
func LoadReceipt(fs afero.Fs, prefix string) (*Receipt, error) {
	data, err := afero.ReadFile(fs, receiptPath(prefix))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read install receipt: %w", err)
	}

	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse install receipt: %w", err)
	}
	return &receipt, nil
}

func saveReceipt(fs afero.Fs, prefix string, receipt *Receipt) error {
	receipt.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize install receipt: %w", err)
	}

	if err := fs.MkdirAll(prefix, 0755); err != nil {
		return fmt.Errorf("failed to create install prefix: %w", err)
	}
	if err := afero.WriteFile(fs, receiptPath(prefix), data, 0644); err != nil {
		return fmt.Errorf("failed to write install receipt: %w", err)
	}
	return nil
}

func newReceipt(runID, version string) *Receipt {
	now := time.Now()
	return &Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		RunID:         runID,
		Version:       version,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// sameRelease reports whether the receipt records this payload. Head
// installs also compare the commit, since a branch's version file rarely
// changes between commits.
func (r *Receipt) sameRelease(version, commit string) bool {
	return r != nil && r.Version == version && r.Commit == commit
}
