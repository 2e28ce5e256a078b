package game

import "github.com/nvandessel/compsig/internal/config"

// Reward maps a round's outcome to the reinforcement amount.
//
// Correctness is mapped linearly from {0, 1} to {-NegativeReward, +PositiveReward};
// emitting the costly second message subtracts SecondMessageCost on top.
func Reward(correct bool, cfg config.Configuration, msg2 int) float64 {
	c := 0.0
	if correct {
		c = 1.0
	}
	reward := c*(cfg.PositiveReward+cfg.NegativeReward) - cfg.NegativeReward
	if msg2 == cfg.CostlyMessage {
		reward -= cfg.SecondMessageCost
	}
	return reward
}
