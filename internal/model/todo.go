package model

// Todo is a single to-do item. OwnerID is set once at creation and never
// reassigned.
type Todo struct {
	ID          int64  `json:"id"          db:"id"`
	Title       string `json:"title"       db:"title"`
	Description string `json:"description" db:"description"`
	Priority    int    `json:"priority"    db:"priority"`
	Complete    bool   `json:"complete"    db:"complete"`
	OwnerID     int64  `json:"owner_id"    db:"owner_id"`
}
