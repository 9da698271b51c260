package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/stagegrid/internal/stage"
)

// Kind is the scheduling policy of a group.
type Kind int

const (
	Sequence Kind = iota
	Parallel
)

func (k Kind) String() string {
	switch k {
	case Sequence:
		return "sequence"
	case Parallel:
		return "parallel"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is exactly one of a stage or a nested group.
type Member struct {
	Stage *stage.Spec
	Group *Group
}

// StageMember wraps a stage spec as a group member.
func StageMember(spec stage.Spec) Member {
	return Member{Stage: &spec}
}

// GroupMember wraps a nested group as a group member.
func GroupMember(g Group) Member {
	return Member{Group: &g}
}

// Name returns the member's name.
func (m Member) Name() string {
	switch {
	case m.Stage != nil:
		return m.Stage.Name
	case m.Group != nil:
		return m.Group.Name
	default:
		return ""
	}
}

// Group is an ordered collection of members with a scheduling policy.
type Group struct {
	Name    string
	Kind    Kind
	Members []Member
}

// NewSequence builds a Sequence group.
func NewSequence(name string, members ...Member) Group {
	return Group{Name: name, Kind: Sequence, Members: members}
}

// NewParallel builds a Parallel group.
func NewParallel(name string, members ...Member) Group {
	return Group{Name: name, Kind: Parallel, Members: members}
}

// Validate checks the group and everything nested in it.
func (g *Group) Validate() error {
	if g.Name == "" {
		return errors.New("group name cannot be empty")
	}
	if strings.Contains(g.Name, "/") {
		return fmt.Errorf("group name %q cannot contain '/'", g.Name)
	}
	if g.Kind != Sequence && g.Kind != Parallel {
		return fmt.Errorf("group %q has unknown kind %s", g.Name, g.Kind)
	}
	seen := make(map[string]struct{}, len(g.Members))
	for i, m := range g.Members {
		switch {
		case m.Stage != nil && m.Group != nil:
			return fmt.Errorf("group %q: member %d is both a stage and a group", g.Name, i)
		case m.Stage != nil:
			if err := m.Stage.Validate(); err != nil {
				return fmt.Errorf("group %q: %w", g.Name, err)
			}
		case m.Group != nil:
			if err := m.Group.Validate(); err != nil {
				return fmt.Errorf("group %q: %w", g.Name, err)
			}
		default:
			return fmt.Errorf("group %q: member %d is empty", g.Name, i)
		}
		if _, dup := seen[m.Name()]; dup {
			return fmt.Errorf("group %q: duplicate member name %q", g.Name, m.Name())
		}
		seen[m.Name()] = struct{}{}
	}
	return nil
}

// StagePaths lists the paths of every stage in the group in declared order.
func (g *Group) StagePaths(prefix string) []string {
	var paths []string
	base := joinPath(prefix, g.Name)
	for _, m := range g.Members {
		if m.Stage != nil {
			paths = append(paths, joinPath(base, m.Stage.Name))
			continue
		}
		paths = append(paths, m.Group.StagePaths(base)...)
	}
	return paths
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
