package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current cache schema version.
// Increment this when making breaking changes to the cached entry format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyFingerprint   = []byte("fingerprint")
)

// SchemaInfo stores schema version and extraction fingerprint.
type SchemaInfo struct {
	Version     int    `json:"version"`
	Fingerprint string `json:"fingerprint"`
}

// Fingerprint identifies what produced cached entries. Entries made by a
// different model, prompt or tag cap are not reusable.
type Fingerprint struct {
	Model         string `json:"model"`
	PromptVersion string `json:"prompt_version"`
	MaxTags       int    `json:"max_tags"`
}

func (f Fingerprint) Hash() string {
	data, _ := json.Marshal(f)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// GetSchemaInfo retrieves the current schema info from the database.
func (c *BoltCache) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keySchemaVersion); v != nil {
			if err := json.Unmarshal(v, &info.Version); err != nil {
				info.Version = 0
			}
		}
		if v := b.Get(keyFingerprint); v != nil {
			info.Fingerprint = string(v)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (c *BoltCache) SetSchemaInfo(info *SchemaInfo) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}
		return b.Put(keyFingerprint, []byte(info.Fingerprint))
	})
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration checks if migration or rebuild is needed.
func (c *BoltCache) CheckMigration(fp Fingerprint) (*MigrationResult, error) {
	info, err := c.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("cache created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.Fingerprint != "" && info.Fingerprint != fp.Hash() {
		result.NeedsRebuild = true
		result.Reason = "extraction model or prompt changed"
	}

	return result, nil
}

// Migrate records the current schema version and fingerprint.
func (c *BoltCache) Migrate(fp Fingerprint) error {
	return c.SetSchemaInfo(&SchemaInfo{
		Version:     CurrentSchemaVersion,
		Fingerprint: fp.Hash(),
	})
}

// Clear removes all cached extractions (for rebuild).
func (c *BoltCache) Clear() error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketExtractions); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketExtractions)
		return err
	})
}

// Prepare opens the cache for fp, clearing entries made under a different
// fingerprint or a newer schema.
func (c *BoltCache) Prepare(fp Fingerprint) (*MigrationResult, error) {
	result, err := c.CheckMigration(fp)
	if err != nil {
		return nil, err
	}
	if result.NeedsRebuild {
		if err := c.Clear(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	if err := c.Migrate(fp); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return result, nil
}
