package models

// All lists every persisted model for AutoMigrate on the sqlite dev path.
func All() []any {
	return []any{
		&Product{},
		&Order{},
		&StoreSetting{},
		&OutboxEvent{},
	}
}
