package scoring

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CLASSIFIER
// ══════════════════════════════════════════════════════════════════════════════

// BadgeTier - уровень бейджа за серию ежедневных участий.
type BadgeTier string

const (
	BadgeNone    BadgeTier = "none"
	BadgeBronze  BadgeTier = "bronze"
	BadgeSilver  BadgeTier = "silver"
	BadgeGold    BadgeTier = "gold"
	BadgeDiamond BadgeTier = "diamond"
)

// badgeLevels упорядочены по убыванию порога.
var badgeLevels = []struct {
	tier    BadgeTier
	minDays int
}{
	{BadgeDiamond, 50},
	{BadgeGold, 28},
	{BadgeSilver, 14},
	{BadgeBronze, 7},
}

// ClassifyBadge возвращает бейдж для длины серии в днях.
func ClassifyBadge(days int) BadgeTier {
	for _, level := range badgeLevels {
		if days >= level.minDays {
			return level.tier
		}
	}
	return BadgeNone
}

// NextBadge возвращает следующий уровень и сколько дней до него осталось.
// Для Diamond следующего уровня нет: возвращается (BadgeNone, 0).
func NextBadge(days int) (BadgeTier, int) {
	for i := len(badgeLevels) - 1; i >= 0; i-- {
		if days < badgeLevels[i].minDays {
			return badgeLevels[i].tier, badgeLevels[i].minDays - days
		}
	}
	return BadgeNone, 0
}

// Emoji возвращает эмодзи бейджа для отображения.
func (b BadgeTier) Emoji() string {
	switch b {
	case BadgeBronze:
		return "🥉"
	case BadgeSilver:
		return "🥈"
	case BadgeGold:
		return "🥇"
	case BadgeDiamond:
		return "💎"
	default:
		return ""
	}
}
