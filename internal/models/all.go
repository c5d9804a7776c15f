package models

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Event{},
		&EventUser{},
		&EventCode{},
		&MenuRecipe{},
		&MenuIngredient{},
		&Contribution{},
		&Poll{},
		&PollOption{},
		&PollVote{},
		&Task{},
		&ChatMessage{},
		&ChatMedia{},
		&RefreshToken{},
	}
}
