package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

var (
	ErrUnknownTrigger   = errors.New("unknown behaviour trigger")
	ErrUnknownSpell     = errors.New("unknown spell")
	ErrUnknownAction    = errors.New("unknown spell action")
	ErrUnknownBehaviour = errors.New("unknown behaviour type")
	ErrUnknownBuff      = errors.New("unknown buff type")
	ErrUnknownObstacle  = errors.New("unknown obstacle template")
	ErrInvalid          = errors.New("invalid settings")
)

// Load decodes JSON overrides on top of the default settings and validates
// the result. Overridden spells, layouts and templates replace the defaults
// with the same id.
func Load(r io.Reader) (*Settings, error) {
	s := Default()
	dec := json.NewDecoder(r)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	for id, spell := range s.Spells {
		if spell != nil {
			spell.ID = id
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every template once so the simulation never meets a
// malformed definition mid-match.
func (s *Settings) Validate() error {
	if s.Matchmaking.MaxPlayers <= 0 {
		return fmt.Errorf("%w: MaxPlayers must be positive", ErrInvalid)
	}
	if s.World.LavaDamageInterval <= 0 {
		return fmt.Errorf("%w: LavaDamageInterval must be positive", ErrInvalid)
	}
	if len(s.Layouts) == 0 {
		return fmt.Errorf("%w: no layouts", ErrInvalid)
	}

	for _, id := range sortedKeys(s.Spells) {
		spell := s.Spells[id]
		if spell == nil {
			return fmt.Errorf("spell %q: %w", id, ErrUnknownSpell)
		}
		if err := validateSpell(spell); err != nil {
			return fmt.Errorf("spell %q: %w", id, err)
		}
	}

	for _, id := range sortedKeys(s.ObstacleTemplates) {
		template := s.ObstacleTemplates[id]
		if template == nil {
			return fmt.Errorf("obstacle template %q: %w", id, ErrUnknownObstacle)
		}
		if err := validateBuffs(template.Buffs); err != nil {
			return fmt.Errorf("obstacle template %q: %w", id, err)
		}
		if template.Detonate != nil {
			if err := validateBuffs(template.Detonate.Buffs); err != nil {
				return fmt.Errorf("obstacle template %q: %w", id, err)
			}
		}
	}

	for _, id := range sortedKeys(s.Layouts) {
		layout := s.Layouts[id]
		if layout == nil {
			return fmt.Errorf("%w: layout %q is empty", ErrInvalid, id)
		}
		for _, obstacle := range layout.Obstacles {
			if _, ok := s.ObstacleTemplates[obstacle.TemplateID()]; !ok {
				return fmt.Errorf("layout %q: %w: %s", id, ErrUnknownObstacle, obstacle.TemplateID())
			}
		}
	}

	for key, groups := range s.Choices.Options {
		n := 0
		for _, group := range groups {
			for _, spellID := range group {
				if _, ok := s.Spells[spellID]; !ok {
					return fmt.Errorf("key %q: %w: %s", key, ErrUnknownSpell, spellID)
				}
				n++
			}
		}
		if n == 0 {
			return fmt.Errorf("%w: key %q has no options", ErrInvalid, key)
		}
	}
	for key, spellID := range s.Choices.Special {
		if _, ok := s.Spells[spellID]; !ok {
			return fmt.Errorf("special key %q: %w: %s", key, ErrUnknownSpell, spellID)
		}
	}
	return nil
}

// TemplateID is the obstacle template this layout entry instantiates
func (o ObstacleLayout) TemplateID() string {
	if o.Type == "" {
		return "default"
	}
	return o.Type
}

func validateSpell(spell *Spell) error {
	if err := validateBuffs(spell.Buffs); err != nil {
		return err
	}

	switch spell.Action {
	case ActionMove, ActionStop, ActionRetarget, ActionBuff, ActionShield, ActionWall, ActionTeleport:
	case ActionProjectile, ActionSpray, ActionCharge, ActionFocus:
		if spell.Projectile == nil {
			return fmt.Errorf("%w: %s spell without projectile", ErrInvalid, spell.Action)
		}
		if err := validateProjectile(spell.Projectile); err != nil {
			return err
		}
		if err := validateBehaviours(spell.ReleaseBehaviours); err != nil {
			return err
		}
		if spell.Action == ActionSpray && (spell.IntervalTicks <= 0 || spell.LengthTicks <= 0) {
			return fmt.Errorf("%w: spray needs positive intervalTicks and lengthTicks", ErrInvalid)
		}
	case ActionScourge:
		if spell.Detonate == nil {
			return fmt.Errorf("%w: scourge without detonate", ErrInvalid)
		}
		if err := validateBuffs(spell.Detonate.Buffs); err != nil {
			return err
		}
	case ActionSaber:
		if len(spell.AngleOffsetsInRevs) == 0 {
			return fmt.Errorf("%w: saber without angle offsets", ErrInvalid)
		}
	case ActionThrust:
		if spell.Speed <= 0 {
			return fmt.Errorf("%w: thrust speed must be positive", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, spell.Action)
	}
	return nil
}

func validateProjectile(p *ProjectileTemplate) error {
	if p.Speed < 0 || p.Radius <= 0 {
		return fmt.Errorf("%w: projectile needs a positive radius", ErrInvalid)
	}
	if err := validateBuffs(p.Buffs); err != nil {
		return err
	}
	if p.Detonate != nil {
		if err := validateBuffs(p.Detonate.Buffs); err != nil {
			return err
		}
	}
	if p.Link != nil && p.Link.MaxDistance <= p.Link.MinDistance {
		return fmt.Errorf("%w: link maxDistance must exceed minDistance", ErrInvalid)
	}
	return validateBehaviours(p.Behaviours)
}

func validateBehaviours(templates []BehaviourTemplate) error {
	for _, b := range templates {
		switch b.Type {
		case BehaviourHoming:
			switch b.TargetType {
			case "", HomingSelf, HomingEnemy, HomingCursor, HomingFollow:
			default:
				return fmt.Errorf("%w: homing target %q", ErrInvalid, b.TargetType)
			}
		case BehaviourAura:
			if err := validateBuffs(b.Buffs); err != nil {
				return err
			}
		case BehaviourAccelerate, BehaviourAttract, BehaviourUpdateCollideWith, BehaviourClearHits,
			BehaviourExpireOnOwnerDeath, BehaviourExpireOnOwnerRetreat, BehaviourExpireOnChannellingEnd:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownBehaviour, b.Type)
		}

		if t := b.Trigger; t != nil && !t.AtCursor && t.AfterTicks <= 0 {
			return fmt.Errorf("%s: %w", b.Type, ErrUnknownTrigger)
		}
	}
	return nil
}

func validateBuffs(templates []BuffTemplate) error {
	for _, b := range templates {
		switch b.Type {
		case BuffDebuff, BuffMovement, BuffGlide, BuffLavaImmunity, BuffVanish, BuffLifeSteal, BuffCooldown, BuffArmor:
		case BuffBurn:
			if b.Packet == nil || b.HitInterval <= 0 {
				return fmt.Errorf("%w: burn needs a packet and a positive hitInterval", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownBuff, b.Type)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedLayoutIDs lists layout ids in a stable order for seeded selection
func (s *Settings) SortedLayoutIDs() []string {
	return sortedKeys(s.Layouts)
}
