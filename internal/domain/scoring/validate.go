package scoring

import (
	"fmt"

	"github.com/snapclash/snapclash-hub/internal/domain/challenge"
	"github.com/snapclash/snapclash-hub/internal/domain/shared"
)

// ValidateRatings отбраковывает строки, которые не могут прийти из корректного
// хранилища: пустой ID отправки или оценку вне 0..5.
// Возвращает первую найденную ошибку.
func ValidateRatings(ratings []challenge.Rating) error {
	for i, r := range ratings {
		if r.SubmissionID == "" {
			return shared.WrapError("scoring", "ValidateRatings", shared.ErrEmptySubmissionID,
				"malformed rating", fmt.Errorf("row %d", i))
		}
		if r.Stars < challenge.MinStars || r.Stars > challenge.MaxStars {
			return shared.WrapError("scoring", "ValidateRatings", shared.ErrStarsOutOfRange,
				"malformed rating", fmt.Errorf("row %d: submission %s: %d stars", i, r.SubmissionID, r.Stars))
		}
	}
	return nil
}

// ValidateOwnedRatings - ValidateRatings для оценок с автором фото.
func ValidateOwnedRatings(ratings []challenge.OwnedRating) error {
	plain := make([]challenge.Rating, len(ratings))
	for i, r := range ratings {
		plain[i] = r.Rating
	}
	return ValidateRatings(plain)
}
