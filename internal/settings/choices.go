package settings

import (
	"math/rand"
	"slices"
)

// ResolvedKeyBindings is the two-way mapping between buttons and the spells bound to them
type ResolvedKeyBindings struct {
	KeysToSpells map[string]string
	SpellsToKeys map[string]string
}

// ResolveKeyBindings binds every key to the requested spell when it is a valid
// option for that key, otherwise to the first option.
func (s *Settings) ResolveKeyBindings(bindings KeyBindings) ResolvedKeyBindings {
	resolved := ResolvedKeyBindings{
		KeysToSpells: make(map[string]string),
		SpellsToKeys: make(map[string]string),
	}
	for _, key := range sortedKeys(s.Choices.Options) {
		options := flatten(s.Choices.Options[key])
		if len(options) == 0 {
			continue
		}

		spellID := bindings[key]
		if !slices.Contains(options, spellID) {
			spellID = options[0]
		}
		resolved.KeysToSpells[key] = spellID
		resolved.SpellsToKeys[spellID] = key
	}
	return resolved
}

// RandomKeyBindings picks a random option for every key with a choice
func (s *Settings) RandomKeyBindings(rng *rand.Rand) KeyBindings {
	bindings := make(KeyBindings)
	for _, key := range sortedKeys(s.Choices.Options) {
		options := flatten(s.Choices.Options[key])
		if len(options) > 1 {
			bindings[key] = options[rng.Intn(len(options))]
		}
	}
	return bindings
}

func flatten(groups [][]string) []string {
	var result []string
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
