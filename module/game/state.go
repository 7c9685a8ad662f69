package game

import (
	"fmt"
	"strings"

	"github.com/onflow/evm-fleet/utils/rand"
)

// Status is the status of a game episode.
type Status int

const (
	InProgress Status = iota
	Won
	Lost
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further move changes the episode.
func (s Status) Terminal() bool {
	return s == Won || s == Lost
}

// letterSet is a set of the letters 'a' to 'z'.
type letterSet uint32

func (s letterSet) has(c byte) bool {
	return s&(1<<(c-'a')) != 0
}

func (s letterSet) with(c byte) letterSet {
	return s | 1<<(c-'a')
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// State is the local simulation of one episode. It is a value: Apply returns a
// new state and never modifies the receiver.
//
// The simulation only scripts plausible play. It is never reconciled with the
// contract, whose authoritative state may differ.
type State struct {
	word    string
	letters letterSet // letters of word
	guessed letterSet
	order   []byte
	lives   int
	status  Status
}

// NewState starts an episode for a secret word made of lowercase ASCII letters.
func NewState(word string, lives int) (State, error) {
	if word == "" {
		return State{}, fmt.Errorf("secret word is empty")
	}
	if lives < 1 {
		return State{}, fmt.Errorf("lives must be at least 1, got %d", lives)
	}
	var letters letterSet
	for i := 0; i < len(word); i++ {
		if !isLetter(word[i]) {
			return State{}, fmt.Errorf("secret word %q contains %q, only a-z are allowed", word, word[i])
		}
		letters = letters.with(word[i])
	}
	return State{
		word:    word,
		letters: letters,
		lives:   lives,
		status:  InProgress,
	}, nil
}

// Word returns the secret word.
func (s State) Word() string {
	return s.word
}

// Lives returns the number of wrong guesses left.
func (s State) Lives() int {
	return s.lives
}

// Status returns the status of the episode.
func (s State) Status() Status {
	return s.status
}

// Guessed returns the guessed letters in guess order.
func (s State) Guessed() []byte {
	return append([]byte(nil), s.order...)
}

// HasGuessed reports whether the letter was already guessed.
func (s State) HasGuessed(c byte) bool {
	return isLetter(c) && s.guessed.has(c)
}

// Display returns the secret word with every letter not yet guessed masked as '_'.
func (s State) Display() string {
	var b strings.Builder
	b.Grow(len(s.word))
	for i := 0; i < len(s.word); i++ {
		if s.guessed.has(s.word[i]) {
			b.WriteByte(s.word[i])
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Apply returns the state after guessing c. A letter absent from the word costs a
// life unless it was guessed before. Terminal states and characters outside a-z
// are returned unchanged.
func (s State) Apply(c byte) State {
	if s.status.Terminal() || !isLetter(c) {
		return s
	}
	if s.guessed.has(c) {
		return s
	}

	next := s
	next.guessed = s.guessed.with(c)
	next.order = append(append(make([]byte, 0, len(s.order)+1), s.order...), c)
	if !s.letters.has(c) {
		next.lives--
	}

	switch {
	case next.guessed&next.letters == next.letters:
		next.status = Won
	case next.lives <= 0:
		next.lives = 0
		next.status = Lost
	}
	return next
}

// Forfeit ends an episode that cannot continue as Lost. Terminal states are
// returned unchanged.
func (s State) Forfeit() State {
	if s.status.Terminal() {
		return s
	}
	next := s
	next.status = Lost
	return next
}

// remaining returns the untried letters of the word and the untried letters absent
// from it, in alphabetical order.
func (s State) remaining() (correct []byte, wrong []byte) {
	for c := byte('a'); c <= 'z'; c++ {
		if s.guessed.has(c) {
			continue
		}
		if s.letters.has(c) {
			correct = append(correct, c)
		} else {
			wrong = append(wrong, c)
		}
	}
	return correct, wrong
}

// NextMove picks the next letter to guess. With probability errorProbability, and
// while an untried wrong letter remains, it deliberately picks a letter absent from
// the word. Otherwise it picks an untried letter of the word, falling back to a
// wrong letter when none is left. ok is false when the episode is terminal or no
// untried letter remains at all.
func NextMove(s State, errorProbability float64, rng rand.Source) (letter byte, ok bool) {
	if s.status.Terminal() {
		return 0, false
	}
	correct, wrong := s.remaining()
	switch {
	case len(wrong) > 0 && (len(correct) == 0 || rand.Bernoulli(rng, errorProbability)):
		return rand.Pick(rng, wrong), true
	case len(correct) > 0:
		return rand.Pick(rng, correct), true
	default:
		return 0, false
	}
}
