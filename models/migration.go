package models

import "github.com/boxworkshq/boxtrack_backend/config"

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Settings{},
		&WeeklySalesRecord{},
		&WeeklyProductionRecord{},
		&User{},
	)
	if err != nil {
		config.LogError(config.GetLogger(), "migration.go", "MigrateTable", "AutoMigrate", nil, err)
	}
}
