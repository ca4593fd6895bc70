package infra

import (
	"fmt"

	"fornoro/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate for the
// inventory tables, then applies the idempotent SQL patches that GORM cannot express
// (CHECK constraints, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}
	return db, nil
}

// NewSQLite opens a CGO-free SQLite database (":memory:" or a file path) for local
// single-instance runs and tests. A single connection keeps every transaction serialized.
func NewSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates the inventory tables.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Insumo{},
		&model.ComponenteReceta{},
		&model.Traspaso{},
		&model.ItemTraspaso{},
		&model.MovimientoStock{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent Postgres DDL. Each statement is guarded by an
// existence check so re-running on an already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// stock can never go negative, whatever path wrote it
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_insumos_stock_no_negativo') THEN
		    ALTER TABLE insumos ADD CONSTRAINT chk_insumos_stock_no_negativo CHECK (stock >= 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_insumos_factor_positivo') THEN
		    ALTER TABLE insumos ADD CONSTRAINT chk_insumos_factor_positivo CHECK (factor_conversion > 0);
		  END IF;
		END $$`,
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_traspasos_sucursales_distintas') THEN
		    ALTER TABLE traspasos ADD CONSTRAINT chk_traspasos_sucursales_distintas CHECK (sucursal_origen <> sucursal_destino);
		  END IF;
		END $$`,
		// partial index for the "in transit" listing
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_traspasos_pendientes') THEN
		    CREATE INDEX idx_traspasos_pendientes
		        ON traspasos (sucursal_destino)
		        WHERE estado = 'PENDING';
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
