// file: internals/features/essays/revision/model/round.go
package model

// MaxRound is the terminal round; reaching it unlocks final submission.
const MaxRound = 6

type RoundKind string

const (
	RoundKindFeedback   RoundKind = "feedback"
	RoundKindValidation RoundKind = "validation"
)

// Rounds 1,3,5 give open feedback; rounds 2,4,6 are scored.
func KindOfRound(round int) RoundKind {
	if round%2 == 0 {
		return RoundKindValidation
	}
	return RoundKindFeedback
}

func IsValidRound(round int) bool {
	return round >= 1 && round <= MaxRound
}

// Validation rounds that receive the preceding feedback round's text.
var priorContextRounds = map[int]int{
	4: 3,
	6: 5,
}

// PriorContextRound returns the round whose artifact text is handed to
// `round` as context, or 0 if none.
func PriorContextRound(round int) int {
	return priorContextRounds[round]
}

// SnapshotsRound: the terminal round does not record a version snapshot.
func SnapshotsRound(round int) bool {
	return round >= 1 && round < MaxRound
}
