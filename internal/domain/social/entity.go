// Package social содержит доменную модель дружбы между пользователями SnapClash.
// Дружба определяет, кто попадает в приватный лидерборд побед.
package social

import (
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// FriendshipStatus - статус заявки в друзья.
type FriendshipStatus string

const (
	// FriendshipPending - заявка отправлена, ответа нет.
	FriendshipPending FriendshipStatus = "pending"
	// FriendshipAccepted - заявка принята, дружба взаимна.
	FriendshipAccepted FriendshipStatus = "accepted"
	// FriendshipDeclined - заявка отклонена.
	FriendshipDeclined FriendshipStatus = "declined"
)

// IsValid проверяет корректность статуса.
func (s FriendshipStatus) IsValid() bool {
	switch s {
	case FriendshipPending, FriendshipAccepted, FriendshipDeclined:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrSelfFriendship - нельзя дружить с самим собой.
	ErrSelfFriendship = errors.New("cannot befriend self")
	// ErrFriendshipNotPending - заявка уже обработана.
	ErrFriendshipNotPending = errors.New("friendship is not pending")
	// ErrEmptyUserID - пустой ID пользователя.
	ErrEmptyUserID = errors.New("user id is required")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY: FRIENDSHIP
// ══════════════════════════════════════════════════════════════════════════════

// Friendship - заявка в друзья. После принятия связь неориентированная:
// кто отправил заявку, значения не имеет.
type Friendship struct {
	RequesterID string
	AddresseeID string
	Status      FriendshipStatus
	CreatedAt   time.Time
}

// NewFriendship создаёт новую заявку в друзья.
func NewFriendship(requesterID, addresseeID string) (*Friendship, error) {
	if requesterID == "" || addresseeID == "" {
		return nil, ErrEmptyUserID
	}
	if requesterID == addresseeID {
		return nil, ErrSelfFriendship
	}

	return &Friendship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      FriendshipPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Accept принимает заявку.
func (f *Friendship) Accept() error {
	if f.Status != FriendshipPending {
		return ErrFriendshipNotPending
	}
	f.Status = FriendshipAccepted
	return nil
}

// Decline отклоняет заявку.
func (f *Friendship) Decline() error {
	if f.Status != FriendshipPending {
		return ErrFriendshipNotPending
	}
	f.Status = FriendshipDeclined
	return nil
}

// Involves проверяет, участвует ли пользователь в дружбе.
func (f Friendship) Involves(userID string) bool {
	return f.RequesterID == userID || f.AddresseeID == userID
}

// Other возвращает второго участника дружбы.
func (f Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}

// ══════════════════════════════════════════════════════════════════════════════
// FRIEND SET
// ══════════════════════════════════════════════════════════════════════════════

// FriendSet - множество пользователей, видимых в приватном лидерборде.
// Всегда содержит самого владельца.
type FriendSet map[string]struct{}

// NewFriendSet строит множество из владельца и списка ID друзей.
func NewFriendSet(ownerID string, friendIDs []string) FriendSet {
	set := make(FriendSet, len(friendIDs)+1)
	set[ownerID] = struct{}{}
	for _, id := range friendIDs {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// FriendSetFromFriendships строит множество из заявок, учитывая только принятые.
func FriendSetFromFriendships(ownerID string, friendships []Friendship) FriendSet {
	ids := make([]string, 0, len(friendships))
	for _, f := range friendships {
		if f.Status == FriendshipAccepted && f.Involves(ownerID) {
			ids = append(ids, f.Other(ownerID))
		}
	}
	return NewFriendSet(ownerID, ids)
}

// Contains проверяет принадлежность пользователя множеству.
func (s FriendSet) Contains(userID string) bool {
	_, ok := s[userID]
	return ok
}

// IDs возвращает ID множества в произвольном порядке.
func (s FriendSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
