package models

// All lists every persisted model in dependency order. Used to bootstrap
// SQLite schemas where goose's Postgres migrations do not apply.
func All() []any {
	return []any{
		&Product{},
		&InventoryRecord{},
		&Customer{},
		&User{},
		&Address{},
		&Order{},
		&OrderItem{},
		&OutboxEvent{},
	}
}
