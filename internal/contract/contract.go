// Package contract implements the admin-secret contract (C8): keeping the
// environment file, the server config, and the encrypted secret store
// mutually consistent, with drift detection and ordered repair.
package contract

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/sync/singleflight"

	"uwizard/internal/logging"
	"uwizard/internal/secretstore"
	"uwizard/internal/wizconfig"
)

// DriftKind is the closed set from spec.md §3.
type DriftKind string

const (
	DriftMissingEnvKey      DriftKind = "missing_env_key"
	DriftMissingEnvToken    DriftKind = "missing_env_token"
	DriftMissingConfigKeyID DriftKind = "missing_config_key_id"
	DriftSecretStoreLocked  DriftKind = "secret_store_locked"
	DriftMissingSecretEntry DriftKind = "missing_secret_entry"
	DriftTokenMismatch      DriftKind = "token_mismatch"
)

// repairActionFor maps a drift kind to the human-readable action name that
// would resolve it, used in Status's repair_actions preview.
var repairActionFor = map[DriftKind]string{
	DriftMissingEnvKey:      "generate_wizard_key",
	DriftMissingEnvToken:    "generate_admin_token",
	DriftMissingConfigKeyID: "set_admin_api_key_id",
	DriftSecretStoreLocked:  "reset_secret_store",
	DriftMissingSecretEntry: "upsert_secret_entry",
	DriftTokenMismatch:      "upsert_secret_entry",
}

// Status is C8's status() return shape.
type Status struct {
	OK            bool
	Drift         []DriftKind
	RepairActions []string
}

// RepairResult is C8's repair() return shape.
type RepairResult struct {
	OK            bool
	Performed     []string
	ResidualDrift []DriftKind
}

// Contract binds the three artifact paths. Repair is serialized through a
// singleflight.Group so concurrent repair calls collapse into one
// execution — the contract is idempotent but not safe to run twice
// concurrently against the same files (spec.md §5: shared secret-store
// lock state is exclusive during unlock/repair).
type Contract struct {
	EnvPath    string
	ConfigPath string
	StorePath  string

	group singleflight.Group
}

func New(envPath, configPath, storePath string) *Contract {
	return &Contract{EnvPath: envPath, ConfigPath: configPath, StorePath: storePath}
}

// Status reads all three artifacts and reports drift without mutating
// anything on disk.
func (c *Contract) Status(ctx context.Context) (Status, error) {
	env, err := wizconfig.ReadEnvFile(c.EnvPath)
	if err != nil {
		return Status{}, fmt.Errorf("read env file: %w", err)
	}
	sc, err := wizconfig.LoadServerConfig(c.ConfigPath)
	if err != nil {
		return Status{}, fmt.Errorf("load server config: %w", err)
	}

	drift := c.detectDrift(env, sc)

	actions := make([]string, 0, len(drift))
	seen := make(map[string]bool)
	for _, d := range drift {
		a := repairActionFor[d]
		if !seen[a] {
			actions = append(actions, a)
			seen[a] = true
		}
	}

	return Status{OK: len(drift) == 0, Drift: drift, RepairActions: actions}, nil
}

// detectDrift enumerates drift kinds in the fixed order spec.md §3 lists
// them, so Status's drift slice is deterministic across runs.
func (c *Contract) detectDrift(env map[string]string, sc *wizconfig.ServerConfig) []DriftKind {
	var drift []DriftKind

	wizardKey, hasKey := env["WIZARD_KEY"]
	hasKey = hasKey && wizardKey != ""
	if !hasKey {
		drift = append(drift, DriftMissingEnvKey)
	}

	adminToken, hasToken := env["WIZARD_ADMIN_TOKEN"]
	hasToken = hasToken && adminToken != ""
	if !hasToken {
		drift = append(drift, DriftMissingEnvToken)
	}

	if sc.AdminAPIKeyID == "" {
		drift = append(drift, DriftMissingConfigKeyID)
	}

	keyID := sc.AdminAPIKeyID
	if keyID == "" {
		keyID = wizconfig.DefaultAdminAPIKeyID
	}

	unlockable := false
	if hasKey {
		store := secretstore.Open(c.StorePath)
		if err := store.Unlock(wizardKey); err == nil {
			unlockable = true

			val, err := store.Get(keyID)
			if err != nil {
				drift = append(drift, DriftMissingSecretEntry)
			} else if hasToken && val != adminToken {
				drift = append(drift, DriftTokenMismatch)
			}
		}
	}
	if !unlockable {
		drift = append(drift, DriftSecretStoreLocked)
	}

	return drift
}

// Repair runs the ordered repair sequence from spec.md §4.8. Concurrent
// callers collapse into a single execution via singleflight.
func (c *Contract) Repair(ctx context.Context) (RepairResult, error) {
	v, err, _ := c.group.Do(c.StorePath, func() (any, error) {
		return c.repairOnce(ctx)
	})
	if err != nil {
		return RepairResult{}, err
	}
	return v.(RepairResult), nil
}

func (c *Contract) repairOnce(ctx context.Context) (RepairResult, error) {
	log := logging.Get(logging.CategoryContract)
	var performed []string

	env, err := wizconfig.ReadEnvFile(c.EnvPath)
	if err != nil {
		return RepairResult{}, fmt.Errorf("read env file: %w", err)
	}
	sc, err := wizconfig.LoadServerConfig(c.ConfigPath)
	if err != nil {
		return RepairResult{}, fmt.Errorf("load server config: %w", err)
	}

	// (1) ensure admin_api_key_id exists in config.
	if sc.AdminAPIKeyID == "" {
		sc.AdminAPIKeyID = wizconfig.DefaultAdminAPIKeyID
		if err := sc.Save(c.ConfigPath); err != nil {
			return RepairResult{}, fmt.Errorf("save server config: %w", err)
		}
		performed = append(performed, "set_admin_api_key_id")
		log.Info("repair: set admin_api_key_id=%s", sc.AdminAPIKeyID)
	}
	keyID := sc.AdminAPIKeyID

	// (2) ensure WIZARD_KEY exists in env.
	wizardKey, hasKey := env["WIZARD_KEY"]
	if !hasKey || wizardKey == "" {
		wizardKey, err = generateHexKey()
		if err != nil {
			return RepairResult{}, fmt.Errorf("generate wizard key: %w", err)
		}
		env["WIZARD_KEY"] = wizardKey
		if err := wizconfig.WriteEnvFile(c.EnvPath, env); err != nil {
			return RepairResult{}, fmt.Errorf("write env file: %w", err)
		}
		performed = append(performed, "generate_wizard_key")
		log.Info("repair: generated WIZARD_KEY")
	}

	store := secretstore.Open(c.StorePath)
	unlockErr := store.Unlock(wizardKey)

	if unlockErr == nil {
		adminToken, hasToken := env["WIZARD_ADMIN_TOKEN"]
		if !hasToken || adminToken == "" {
			// (4) unlockable, env token missing: generate, persist, upsert.
			adminToken, err = generateToken()
			if err != nil {
				return RepairResult{}, fmt.Errorf("generate admin token: %w", err)
			}
			env["WIZARD_ADMIN_TOKEN"] = adminToken
			if err := wizconfig.WriteEnvFile(c.EnvPath, env); err != nil {
				return RepairResult{}, fmt.Errorf("write env file: %w", err)
			}
			performed = append(performed, "generate_admin_token")
			log.Info("repair: generated WIZARD_ADMIN_TOKEN")
		}

		// (3)/(4) upsert the secret entry to match the env token.
		if err := store.Put(keyID, adminToken); err != nil {
			return RepairResult{}, fmt.Errorf("upsert secret entry: %w", err)
		}
		performed = append(performed, "upsert_secret_entry")
		log.Info("repair: upserted secret entry %s", keyID)
	} else {
		// (5) not unlockable: reset the store and reseed from the env token,
		// generating one first if it too is missing.
		if err := store.Reset(wizardKey); err != nil {
			return RepairResult{}, fmt.Errorf("reset secret store: %w", err)
		}
		performed = append(performed, "reset_secret_store")
		log.Warn("repair: reset secret store (was unlockable=false)")

		adminToken, hasToken := env["WIZARD_ADMIN_TOKEN"]
		if !hasToken || adminToken == "" {
			adminToken, err = generateToken()
			if err != nil {
				return RepairResult{}, fmt.Errorf("generate admin token: %w", err)
			}
			env["WIZARD_ADMIN_TOKEN"] = adminToken
			if err := wizconfig.WriteEnvFile(c.EnvPath, env); err != nil {
				return RepairResult{}, fmt.Errorf("write env file: %w", err)
			}
			performed = append(performed, "generate_admin_token")
			log.Info("repair: generated WIZARD_ADMIN_TOKEN")
		}

		if err := store.Put(keyID, adminToken); err != nil {
			return RepairResult{}, fmt.Errorf("reseed secret entry: %w", err)
		}
		performed = append(performed, "upsert_secret_entry")
		log.Info("repair: reseeded secret entry %s", keyID)
	}

	status, err := c.Status(ctx)
	if err != nil {
		return RepairResult{}, fmt.Errorf("post-repair status: %w", err)
	}

	return RepairResult{OK: status.OK, Performed: performed, ResidualDrift: status.Drift}, nil
}

func generateHexKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
