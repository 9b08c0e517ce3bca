package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uniclip/uniclipboard/internal/filex"
)

const onboardingFileName = "onboarding.json"

// OnboardingState is the persisted setup progress. The file is JSON,
// pretty-printed for hand inspection, written atomically.
type OnboardingState struct {
	HasCompleted          bool `json:"has_completed"`
	EncryptionPasswordSet bool `json:"encryption_password_set"`
	DeviceRegistered      bool `json:"device_registered"`
}

// OnboardingStore persists the onboarding state under the vault directory.
type OnboardingStore struct {
	dir string
}

func NewOnboardingStore(dir string) (*OnboardingStore, error) {
	if err := filex.EnsureDir(dir, 0o700); err != nil {
		return nil, err
	}
	return &OnboardingStore{dir: dir}, nil
}

func (s *OnboardingStore) path() string {
	return filepath.Join(s.dir, onboardingFileName)
}

// Load returns the zero state when no file exists yet.
func (s *OnboardingStore) Load() (OnboardingState, error) {
	raw, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return OnboardingState{}, nil
	}
	if err != nil {
		return OnboardingState{}, fmt.Errorf("failed to read onboarding state: %w", err)
	}
	var state OnboardingState
	if err := json.Unmarshal(raw, &state); err != nil {
		return OnboardingState{}, fmt.Errorf("failed to parse onboarding state: %w", err)
	}
	return state, nil
}

func (s *OnboardingStore) Save(state OnboardingState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode onboarding state: %w", err)
	}
	if err := filex.WriteFileAtomic(s.path(), raw, 0o600); err != nil {
		return fmt.Errorf("failed to write onboarding state: %w", err)
	}
	return nil
}
