package llm

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// FallbackMessage composes a local plant reply when generation is
// unavailable. The choice among phrasing options is driven by a stable hash
// of the inputs, so the same subject state always yields the same message and
// different subjects vary naturally.
func FallbackMessage(species, nickname string, growthDelta, lastArea *float64) string {
	name := nickname
	if name == "" {
		name = species
	}
	if name == "" {
		name = "a plant"
	}

	seed := fallbackSeed(species, nickname, growthDelta, lastArea)

	openers := []string{
		fmt.Sprintf("Hey! It's %s here.", name),
		fmt.Sprintf("%s saying hello!", name),
		fmt.Sprintf("I'm %s, just wanted to reach out.", name),
		fmt.Sprintf("%s here, checking in with you.", name),
		fmt.Sprintf("It's me, %s!", name),
		fmt.Sprintf("%s, at your service!", name),
		fmt.Sprintf("Hello from %s!", name),
	}
	opener := openers[seed%uint64(len(openers))]

	var hints []string
	if lastArea != nil {
		switch area := *lastArea; {
		case area < 0.02:
			hints = append(hints,
				"I'm feeling a bit parched, honestly.",
				"Could really use some water right about now!",
				"My soil's looking pretty dry, help a plant out?")
		case area < 0.06:
			hints = append(hints,
				"I'm doing okay, but a little hydration would be nice.",
				"Feeling a bit thirsty if you have a moment.",
				"I appreciate the care, though I could use a drink.")
		default:
			hints = append(hints,
				"Feeling healthy and vibrant today!",
				"I'm thriving, thank you for the good care!",
				"Looking pretty lush right now!",
				"I'm really happy with how things are going.")
		}
	}

	if growthDelta != nil {
		pct := int(math.Round(*growthDelta * 100))
		switch delta := *growthDelta; {
		case delta > 0.15:
			hints = append(hints,
				fmt.Sprintf("I've grown about %d%%, this is awesome!", pct),
				fmt.Sprintf("Wow, I'm %d%% bigger! You're doing great!", pct))
		case delta > 0.05:
			hints = append(hints,
				fmt.Sprintf("I've grown %d%% since you last saw me.", pct),
				fmt.Sprintf("You'll notice I'm a bit bigger, about %d%% more!", pct))
		case delta < -0.1:
			hints = append(hints,
				"I seem smaller than before, I might need more light or water.",
				"I've shrunk a bit... maybe something needs adjusting?")
		case delta < -0.03:
			hints = append(hints,
				"I'm pretty much the same size, steady as she goes!",
				"Not much change from before, but I'm still here and happy!")
		case delta > 0:
			hints = append(hints,
				"I'm about the same, maybe slightly bigger.",
				"Staying steady and stable, I like the routine!")
		default:
			hints = append(hints, "Can't tell from just this photo, but I'm feeling good!")
		}
	}

	if len(hints) == 0 {
		hints = append(hints,
			"Thanks for checking in on me!",
			"Just happy to see you!",
			"Nice to have your attention!")
	}

	picks := []string{hints[(seed/7)%uint64(len(hints))]}
	if len(hints) > 2 && seed%2 == 1 {
		var remaining []string
		for _, h := range hints {
			if h != picks[0] {
				remaining = append(remaining, h)
			}
		}
		if len(remaining) > 0 {
			picks = append(picks, remaining[(seed/13)%uint64(len(remaining))])
		}
	}

	closers := []string{
		"How are things on your end?",
		"What do you think, should I grow more?",
		"Got any time for a little plant care today?",
		"Anything you want to adjust for me?",
		"Want to chat a bit?",
		"Tell me what you're thinking!",
		"Any care tips from your side?",
	}
	question := closers[(seed/3)%uint64(len(closers))]

	body := strings.Join(picks, " ")
	if body == "" {
		body = "Just wanted to say hi!"
	}
	return fmt.Sprintf("%s %s %s", opener, body, question)
}

func fallbackSeed(species, nickname string, growthDelta, lastArea *float64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", species, nickname)
	if growthDelta != nil {
		fmt.Fprintf(h, "|g%.4f", *growthDelta)
	}
	if lastArea != nil {
		fmt.Fprintf(h, "|a%.4f", *lastArea)
	}
	return h.Sum64()
}
