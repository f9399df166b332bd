package actor

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrEmptyCompound = errors.New("compound shape requires at least one child")

// CompoundChild is a shape placed at a local offset inside a compound.
type CompoundChild struct {
	Shape     Shape
	Transform Transform
}

// Compound aggregates several shapes under one body. Children keep
// their own local transforms; mass properties are summed.
type Compound struct {
	Children []CompoundChild
	aabb     AABB
}

// NewCompound builds a compound from child shapes. Nested compounds
// are rejected to keep narrow-phase recursion one level deep.
func NewCompound(children []CompoundChild) (*Compound, error) {
	if len(children) == 0 {
		return nil, ErrEmptyCompound
	}
	for _, child := range children {
		if child.Shape == nil {
			return nil, errors.New("compound child has nil shape")
		}
		if child.Shape.Type() == ShapeTypeCompound {
			return nil, errors.New("compound shapes cannot be nested")
		}
	}
	return &Compound{Children: children}, nil
}

func (c *Compound) Type() ShapeType { return ShapeTypeCompound }

func (c *Compound) ComputeAABB(transform Transform) {
	first := true
	var box AABB
	for _, child := range c.Children {
		child.Shape.ComputeAABB(transform.Mul(child.Transform))
		if first {
			box = child.Shape.GetAABB()
			first = false
		} else {
			box = box.Union(child.Shape.GetAABB())
		}
	}
	c.aabb = box
}

func (c *Compound) GetAABB() AABB {
	return c.aabb
}

func (c *Compound) ComputeMass(density float64) float64 {
	mass := 0.0
	for _, child := range c.Children {
		mass += child.Shape.ComputeMass(density)
	}
	return mass
}

func (c *Compound) ComputeInertia(mass float64) float64 {
	// Distribute the mass by child area, then combine the child
	// inertias about the compound centroid via the parallel axis theorem.
	totalMass := c.ComputeMass(1.0)
	if totalMass <= 0 {
		return 0
	}
	centroid := c.Centroid()

	inertia := 0.0
	for _, child := range c.Children {
		childMass := mass * child.Shape.ComputeMass(1.0) / totalMass
		offset := child.Transform.Apply(child.Shape.Centroid()).Sub(centroid)
		inertia += child.Shape.ComputeInertia(childMass) + childMass*offset.Dot(offset)
	}
	return inertia
}

func (c *Compound) Centroid() mgl64.Vec2 {
	totalMass := 0.0
	var weighted mgl64.Vec2
	for _, child := range c.Children {
		m := child.Shape.ComputeMass(1.0)
		weighted = weighted.Add(child.Transform.Apply(child.Shape.Centroid()).Mul(m))
		totalMass += m
	}
	if totalMass <= 0 {
		return mgl64.Vec2{}
	}
	return weighted.Mul(1.0 / totalMass)
}
