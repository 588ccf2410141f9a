package tenancy

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"netasampark/models"
)

// Manager provisions and hands out tenant data partitions. Every
// partition-scoped call takes an explicit handle from Open; there is no
// ambient "current tenant" anywhere in the codebase.
type Manager interface {
	// Create provisions the isolated partition for a tenant.
	Create(ctx context.Context, tenantID string) error
	// Migrate runs the baseline schema inside the tenant's partition.
	Migrate(tenantID string) error
	// Open returns a partition-scoped handle for the tenant.
	Open(tenantID string) (*gorm.DB, error)
	// Drop removes the tenant's partition and everything in it.
	Drop(ctx context.Context, tenantID string) error
}

var schemaIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// SchemaManager implements Manager as one postgres schema per tenant on the
// central database server. Handles are search_path-scoped connections, cached
// per tenant.
type SchemaManager struct {
	central *gorm.DB
	baseDSN string

	mu      sync.Mutex
	handles map[string]*gorm.DB
}

func NewSchemaManager(central *gorm.DB, baseDSN string) *SchemaManager {
	return &SchemaManager{
		central: central,
		baseDSN: baseDSN,
		handles: make(map[string]*gorm.DB),
	}
}

// SchemaName derives the partition schema identifier from a tenant id.
func SchemaName(tenantID string) string {
	return "tenant_" + strings.ReplaceAll(tenantID, "-", "_")
}

func validSchema(name string) error {
	if !schemaIDPattern.MatchString(name) {
		return fmt.Errorf("invalid partition name %q", name)
	}
	return nil
}

func (m *SchemaManager) Create(ctx context.Context, tenantID string) error {
	schema := SchemaName(tenantID)
	if err := validSchema(schema); err != nil {
		return err
	}
	if err := m.central.WithContext(ctx).Exec(fmt.Sprintf("CREATE SCHEMA %q", schema)).Error; err != nil {
		return fmt.Errorf("create partition %s: %w", schema, err)
	}
	return nil
}

func (m *SchemaManager) Migrate(tenantID string) error {
	tdb, err := m.Open(tenantID)
	if err != nil {
		return err
	}
	if err := models.MigrateTenant(tdb); err != nil {
		return fmt.Errorf("migrate partition %s: %w", SchemaName(tenantID), err)
	}
	return nil
}

func (m *SchemaManager) Open(tenantID string) (*gorm.DB, error) {
	schema := SchemaName(tenantID)
	if err := validSchema(schema); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tdb, ok := m.handles[tenantID]; ok {
		return tdb, nil
	}

	dsn := m.baseDSN + " search_path=" + schema
	tdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open partition %s: %w", schema, err)
	}
	if sqlDB, err := tdb.DB(); err == nil {
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(10)
	}

	m.handles[tenantID] = tdb
	return tdb, nil
}

func (m *SchemaManager) Drop(ctx context.Context, tenantID string) error {
	schema := SchemaName(tenantID)
	if err := validSchema(schema); err != nil {
		return err
	}

	m.mu.Lock()
	if tdb, ok := m.handles[tenantID]; ok {
		if sqlDB, err := tdb.DB(); err == nil {
			sqlDB.Close()
		}
		delete(m.handles, tenantID)
	}
	m.mu.Unlock()

	if err := m.central.WithContext(ctx).Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %q CASCADE", schema)).Error; err != nil {
		return fmt.Errorf("drop partition %s: %w", schema, err)
	}
	return nil
}
