// Package tree keeps categories in an arena indexed by ID and answers
// hierarchy questions: nesting level, descendants and whether a save keeps
// the tree within its depth limit.
package tree

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

// DefaultMaxLevel is the deepest nesting level a category may sit at.
const DefaultMaxLevel = 10

// ValidationError reports a save that would nest a category too deep.
type ValidationError struct {
	Level int
	Max   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("category nesting cannot exceed %d levels, current level: %d", e.Max, e.Level)
}

// PersistFunc writes a category that passed validation.
type PersistFunc func(ctx context.Context, c *model.Category) error

type Tree struct {
	maxLevel int
	nodes    map[string]model.Category
	children map[string][]string
}

func New(maxLevel int, categories ...model.Category) *Tree {
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	t := &Tree{
		maxLevel: maxLevel,
		nodes:    make(map[string]model.Category, len(categories)),
		children: make(map[string][]string),
	}
	for _, c := range categories {
		t.Add(c)
	}
	return t
}

func (t *Tree) MaxLevel() int {
	return t.maxLevel
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

// Add inserts c or replaces the stored copy, moving it under its new parent.
func (t *Tree) Add(c model.Category) {
	if old, ok := t.nodes[c.ID]; ok && old.ParentID != nil {
		t.unlink(*old.ParentID, c.ID)
	}
	t.nodes[c.ID] = c
	if c.ParentID != nil {
		t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
	}
}

// Remove drops id and everything below it.
func (t *Tree) Remove(id string) {
	c, ok := t.nodes[id]
	if !ok {
		return
	}
	descendants, _ := t.Descendants(id)
	for _, d := range descendants {
		delete(t.nodes, d.ID)
		delete(t.children, d.ID)
	}
	if c.ParentID != nil {
		t.unlink(*c.ParentID, id)
	}
	delete(t.nodes, id)
	delete(t.children, id)
}

func (t *Tree) unlink(parentID, childID string) {
	ids := t.children[parentID]
	for i, id := range ids {
		if id == childID {
			t.children[parentID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(t.children[parentID]) == 0 {
		delete(t.children, parentID)
	}
}

func (t *Tree) Get(id string) (model.Category, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

func (t *Tree) Children(id string) []model.Category {
	ids := t.children[id]
	out := make([]model.Category, 0, len(ids))
	for _, childID := range ids {
		if c, ok := t.nodes[childID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every category below id, at any depth, each once.
// The order of the result is unspecified.
func (t *Tree) Descendants(id string) ([]model.Category, error) {
	if _, ok := t.nodes[id]; !ok {
		return nil, fmt.Errorf("descendants of %s: %w", id, model.ErrCategoryNotFound)
	}

	var out []model.Category
	seen := map[string]struct{}{id: {}}
	stack := append([]string(nil), t.children[id]...)
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}

		c, ok := t.nodes[next]
		if !ok {
			continue
		}
		out = append(out, c)
		stack = append(stack, t.children[next]...)
	}
	return out, nil
}

// NestingLevel counts parent hops from id to its root. A root is level 0.
func (t *Tree) NestingLevel(id string) (int, error) {
	c, ok := t.nodes[id]
	if !ok {
		return 0, fmt.Errorf("nesting level of %s: %w", id, model.ErrCategoryNotFound)
	}
	return t.levelOf(c)
}

func (t *Tree) levelOf(c model.Category) (int, error) {
	level := 0
	visited := map[string]struct{}{c.ID: {}}
	for parentID := c.ParentID; parentID != nil; {
		if _, ok := visited[*parentID]; ok {
			return 0, fmt.Errorf("nesting level of %s: %w", c.ID, model.ErrCategoryCycle)
		}
		visited[*parentID] = struct{}{}

		parent, ok := t.nodes[*parentID]
		if !ok {
			return 0, fmt.Errorf("parent %s of %s: %w", *parentID, c.ID, model.ErrCategoryNotFound)
		}
		level++
		parentID = parent.ParentID
	}
	return level, nil
}

// ValidateAndSave checks the level c would have once saved and hands it to
// persist only if the level is within the limit and c does not end up below
// itself. The arena is updated after persist succeeds.
func (t *Tree) ValidateAndSave(ctx context.Context, c *model.Category, persist PersistFunc) error {
	level, err := t.levelOf(*c)
	if err != nil {
		return err
	}
	if level > t.maxLevel {
		return &ValidationError{Level: level, Max: t.maxLevel}
	}

	if err := persist(ctx, c); err != nil {
		return err
	}
	t.Add(*c)
	return nil
}
