package sala

import (
	"math/rand/v2"

	"github.com/wricardo/parques-server/game/board"
)

// Dice draws one die roll
type Dice interface {
	Roll() int
}

// RandomDice is a fair six-sided die
type RandomDice struct{}

func (RandomDice) Roll() int {
	return board.MinRoll + rand.IntN(board.MaxRoll-board.MinRoll+1)
}

// DiceFunc adapts a plain function to Dice
type DiceFunc func() int

func (f DiceFunc) Roll() int { return f() }
