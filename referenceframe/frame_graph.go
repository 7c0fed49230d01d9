// Package referenceframe maintains the chain of named coordinate frames global -> map -> odom -> body
// and the transforms between them.
package referenceframe

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/samber/lo/mutable"

	"go.viam.com/stateestimator/spatialmath"
)

// link is the transform of child relative to parent. Every frame except the global frame is the
// child of exactly one link.
type link struct {
	parent string
	child  string
	pose   spatialmath.Pose
	static bool
	set    bool
	dirty  bool
}

// FrameGraph owns the static offsets above the map frame and the two dynamic transforms
// map -> odom and odom -> body. It is not safe for concurrent use; a single goroutine is expected to
// own it.
type FrameGraph struct {
	names FrameNames
	// keyed by child frame name
	links map[string]*link
	// static children in declaration order
	staticOrder []string
	frozen      bool
}

// NewFrameGraph declares the chain for the given names. The two dynamic links exist but are unset
// until SetDynamicTransform is called.
func NewFrameGraph(names FrameNames) (*FrameGraph, error) {
	chain := names.Chain()
	for _, name := range chain {
		if name == "" {
			return nil, NewConfigurationError("frame names must not be empty: %v", chain)
		}
	}
	if len(lo.Uniq(chain)) != len(chain) {
		return nil, NewConfigurationError("frame names must be distinct: %v", chain)
	}
	return &FrameGraph{
		names: names,
		links: map[string]*link{
			names.Odom: {parent: names.Map, child: names.Odom},
			names.Body: {parent: names.Odom, child: names.Body},
		},
	}, nil
}

// Names returns the frame names of the chain.
func (fg *FrameGraph) Names() FrameNames {
	return fg.names
}

// SetStaticOffset installs an immutable link. Static links must be installed before Freeze and
// together must connect the global frame to the map frame.
func (fg *FrameGraph) SetStaticOffset(parent, child string, pose spatialmath.Pose) error {
	if fg.frozen {
		return NewConfigurationError("static offset %q -> %q installed after activation", parent, child)
	}
	if parent == child {
		return NewConfigurationError("static offset %q -> %q links a frame to itself", parent, child)
	}
	if child == fg.names.Global {
		return NewConfigurationError("the global frame %q cannot have a parent", child)
	}
	if child == fg.names.Odom || child == fg.names.Body {
		return NewConfigurationError("%q is the child of a dynamic link and cannot be given a static offset", child)
	}
	if existing, ok := fg.links[child]; ok {
		return NewConfigurationError("frame %q already has parent %q", child, existing.parent)
	}
	fg.links[child] = &link{
		parent: parent,
		child:  child,
		pose:   spatialmath.NewPose(pose.Point, pose.Orientation),
		static: true,
		set:    true,
		dirty:  true,
	}
	fg.staticOrder = append(fg.staticOrder, child)
	return nil
}

// Freeze ends the configuration phase. After Freeze no static offsets may be installed. It fails if
// the static links do not connect the map frame to the global frame.
func (fg *FrameGraph) Freeze() error {
	if _, err := fg.traceback(fg.names.Map, fg.names.Global); err != nil {
		return NewConfigurationError("no static offsets connect %q to %q", fg.names.Global, fg.names.Map)
	}
	fg.frozen = true
	return nil
}

// Frozen reports whether Freeze has succeeded.
func (fg *FrameGraph) Frozen() bool {
	return fg.frozen
}

// SetDynamicTransform overwrites map -> odom or odom -> body and marks it dirty.
func (fg *FrameGraph) SetDynamicTransform(parent, child string, pose spatialmath.Pose) error {
	l, ok := fg.links[child]
	if !ok || l.static || l.parent != parent {
		return NewConfigurationError("%q -> %q is not a dynamic link", parent, child)
	}
	l.pose = pose
	l.set = true
	l.dirty = true
	return nil
}

// Dirty reports whether the link has changed since the last PublishAll.
func (fg *FrameGraph) Dirty(parent, child string) bool {
	l, ok := fg.links[child]
	return ok && l.parent == parent && l.dirty
}

// Compose returns the transform of to relative to from by chaining every link between them. If to
// is an ancestor of from, the inverse of the forward chain is returned.
func (fg *FrameGraph) Compose(from, to string) (spatialmath.Pose, error) {
	if !fg.known(from) {
		return spatialmath.Pose{}, NewLookupError(from, to, fmt.Sprintf("unknown frame %q", from))
	}
	if !fg.known(to) {
		return spatialmath.Pose{}, NewLookupError(from, to, fmt.Sprintf("unknown frame %q", to))
	}
	if from == to {
		return spatialmath.NewZeroPose(), nil
	}

	inverse := false
	path, err := fg.traceback(to, from)
	if err != nil {
		if path, err = fg.traceback(from, to); err != nil {
			return spatialmath.Pose{}, NewLookupError(from, to, "frames are not connected")
		}
		inverse = true
	}

	for _, l := range path {
		if !l.set {
			return spatialmath.Pose{}, NewLookupError(from, to, fmt.Sprintf("link %q -> %q has never been set", l.parent, l.child))
		}
	}
	// path runs child to ancestor, composition runs ancestor to child
	poses := lo.Map(path, func(l *link, _ int) spatialmath.Pose { return l.pose })
	mutable.Reverse(poses)
	composed := spatialmath.ComposeChain(poses...)
	if inverse {
		return spatialmath.Invert(composed), nil
	}
	return composed, nil
}

// PublishAll sends every static link, then map -> odom, then odom -> body, all stamped with
// timestamp, as one batch. Dirty flags are cleared once the broadcaster accepts the batch.
func (fg *FrameGraph) PublishAll(ctx context.Context, timestamp time.Time, broadcaster Broadcaster) error {
	transforms, err := fg.Transforms(timestamp)
	if err != nil {
		return err
	}
	if err := broadcaster.SendTransforms(ctx, transforms); err != nil {
		return err
	}
	for _, l := range fg.links {
		l.dirty = false
	}
	return nil
}

// Transforms returns the current value of every link in publish order. It fails if a dynamic link
// has never been set.
func (fg *FrameGraph) Transforms(timestamp time.Time) ([]StampedTransform, error) {
	order := append(append([]string{}, fg.staticOrder...), fg.names.Odom, fg.names.Body)
	transforms := make([]StampedTransform, 0, len(order))
	for _, child := range order {
		l := fg.links[child]
		if !l.set {
			return nil, NewLookupError(l.parent, l.child, "link has never been set")
		}
		transforms = append(transforms, StampedTransform{
			Time:   timestamp,
			Parent: l.parent,
			Child:  l.child,
			Pose:   l.pose,
			Static: l.static,
		})
	}
	return transforms, nil
}

// Links returns every link that has a value, in publish order, stamped with the zero time.
func (fg *FrameGraph) Links() []StampedTransform {
	order := append(append([]string{}, fg.staticOrder...), fg.names.Odom, fg.names.Body)
	return lo.FilterMap(order, func(child string, _ int) (StampedTransform, bool) {
		l := fg.links[child]
		return StampedTransform{Parent: l.parent, Child: l.child, Pose: l.pose, Static: l.static}, l.set
	})
}

func (fg *FrameGraph) known(name string) bool {
	if name == fg.names.Global {
		return true
	}
	if _, ok := fg.links[name]; ok {
		return true
	}
	for _, l := range fg.links {
		if l.parent == name {
			return true
		}
	}
	return false
}

// traceback walks parents from child up to ancestor and returns the links crossed, nearest first.
func (fg *FrameGraph) traceback(child, ancestor string) ([]*link, error) {
	var path []*link
	cur := child
	// a chain can never be longer than the number of links
	for len(path) <= len(fg.links) {
		if cur == ancestor {
			return path, nil
		}
		l, ok := fg.links[cur]
		if !ok {
			break
		}
		path = append(path, l)
		cur = l.parent
	}
	return nil, fmt.Errorf("%q is not an ancestor of %q", ancestor, child)
}
