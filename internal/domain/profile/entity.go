// Package profile содержит публичный профиль пользователя SnapClash:
// то, что отображается рядом с результатами в лидербордах.
package profile

import "context"

// UnknownUsername - имя для пользователя без профиля.
const UnknownUsername = "unknown"

// Profile - публичные данные пользователя.
// DisplayName равен nil, если пользователь его не задал.
type Profile struct {
	ID          string
	Username    string
	DisplayName *string
}

// Unknown возвращает профиль-заглушку для отсутствующего пользователя.
func Unknown(id string) Profile {
	return Profile{ID: id, Username: UnknownUsername}
}

// Directory - профили, загруженные по ID.
type Directory map[string]Profile

// Get возвращает профиль или заглушку Unknown.
func (d Directory) Get(id string) Profile {
	if p, ok := d[id]; ok {
		if p.Username == "" {
			p.Username = UnknownUsername
		}
		return p
	}
	return Unknown(id)
}

// Repository - чтение профилей.
type Repository interface {
	// LookupProfiles возвращает найденные профили по ID.
	// Отсутствующие ID просто не попадают в результат.
	LookupProfiles(ctx context.Context, userIDs []string) (Directory, error)
}
