package models

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

/*
Query helper generation and column drift report.

GENERATE_MODELS=true migrates every collection table, prints the drift report and
writes typed query helpers (gorm.io/gen) for the four collections into ./query.

GENERATE_COLUMN_REPORT=true only prints the drift report:

	--- Table: projects ---
	Found 1 columns not accounted for in model:
	  - legacy_slug
*/

// All lists one zero value per collection, in migration order.
func All() []any {
	return []any{&Achievement{}, &Project{}, &Event{}, &TeamMember{}}
}

func GenerateModels(db *gorm.DB, outPath string) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	migrateDB := db.Session(&gorm.Session{SkipDefaultTransaction: true})
	if err := migrateDB.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("migrate collections: %w", err)
	}
	log.Info().Msg("Collection tables migrated")

	if _, err := ColumnReport(db); err != nil {
		log.Warn().Err(err).Msg("Column report failed")
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(All()...)
	g.Execute()

	log.Info().Str("outPath", outPath).Msg("Query helpers generated")
	return nil
}

// ColumnReport logs, per collection table, the database columns that no model
// field maps to, and returns the total count.
func ColumnReport(db *gorm.DB) (int, error) {
	total := 0
	for _, model := range All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return total, fmt.Errorf("parse %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !db.Migrator().HasTable(table) {
			log.Info().Str("table", table).Msg("Table does not exist yet (will be created during migration)")
			continue
		}

		columnTypes, err := db.Migrator().ColumnTypes(table)
		if err != nil {
			return total, fmt.Errorf("columns of %s: %w", table, err)
		}
		dbColumns := make([]string, 0, len(columnTypes))
		for _, ct := range columnTypes {
			dbColumns = append(dbColumns, ct.Name())
		}

		missing := findColumnMismatches(dbColumns, modelColumns(stmt.Schema))
		total += len(missing)

		if len(missing) > 0 {
			log.Warn().Str("table", table).Strs("columns", missing).
				Msgf("Found %d columns not accounted for in model", len(missing))
		} else {
			log.Info().Str("table", table).Msg("All columns are accounted for in the model")
		}
	}

	log.Info().Int("total", total).Msg("Column report complete")
	return total, nil
}

// modelColumns lists the column names gorm maps for a parsed model.
func modelColumns(s *schema.Schema) []string {
	columns := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.DBName == "" || field.FieldType.Kind() == reflect.Struct && field.DataType == "" {
			continue
		}
		columns = append(columns, field.DBName)
	}
	return columns
}

// findColumnMismatches finds columns that exist in the database but not in the model
func findColumnMismatches(dbColumns, modelFields []string) []string {
	modelFieldSet := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		modelFieldSet[strings.ToLower(field)] = true
	}

	var mismatches []string
	for _, col := range dbColumns {
		if !modelFieldSet[strings.ToLower(col)] {
			mismatches = append(mismatches, col)
		}
	}
	sort.Strings(mismatches)

	return mismatches
}
