package domain

// TrustedUser struct - one operator allowed to use the bot. Anyone else is ignored.
type TrustedUser struct {
	TelegramID     int64
	BlockedTags    []string
	OwnerTag       string
	UploadTagInfix string
}

// TrustedUserSet struct - lookup of operators by their chat platform ID
type TrustedUserSet struct {
	users map[int64]TrustedUser
}

// NewTrustedUserSet builds the operator lookup from configuration
func NewTrustedUserSet(users []TrustedUser) *TrustedUserSet {
	set := &TrustedUserSet{users: make(map[int64]TrustedUser, len(users))}
	for _, user := range users {
		set.users[user.TelegramID] = user
	}
	return set
}

// Lookup returns the trusted user with the given ID, if any
func (s *TrustedUserSet) Lookup(telegramID int64) (TrustedUser, bool) {
	user, ok := s.users[telegramID]
	return user, ok
}

// All returns every configured trusted user
func (s *TrustedUserSet) All() []TrustedUser {
	users := make([]TrustedUser, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	return users
}
