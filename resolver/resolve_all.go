package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigaddr/address"
	"sigaddr/process"
	"sigaddr/signature"

	"golang.org/x/sync/errgroup"
)

// patternGroup is every descriptor sharing one byte pattern; the pattern is
// scanned once for all of them.
type patternGroup struct {
	pattern     *signature.Pattern
	descriptors []*address.Descriptor

	resolved []address.Resolved
	failures []Failure
}

// ResolveAll resolves every registered descriptor against img and closes
// registration. Each distinct pattern is scanned once. A descriptor that
// fails is recorded in the report and does not stop the others; if any
// failed the resolver ends Degraded, otherwise Ready.
//
// ctx is checked between patterns. When it is cancelled the remaining
// descriptors are recorded as failed with the context error, the resolver
// ends Degraded and the context error is returned along with the report.
func (r *Resolver) ResolveAll(ctx context.Context, img process.Image) (*Report, error) {
	if img == nil {
		return nil, errors.New("resolve: nil image")
	}

	r.mu.Lock()
	if !r.state.CompareAndSwap(int32(Registering), int32(Resolving)) {
		r.mu.Unlock()
		return nil, ErrAlreadyResolved
	}
	order := append([]string(nil), r.order...)
	descriptors := r.descriptors
	r.mu.Unlock()

	groups := groupByPattern(order, descriptors)

	r.log.Infoln("Resolving", len(order), "addresses,", len(groups), "unique patterns, base", img.BaseAddress())
	start := time.Now()

	if r.maxdop > 1 && len(groups) > 1 {
		var g errgroup.Group
		g.SetLimit(r.maxdop)
		for _, group := range groups {
			g.Go(func() error {
				r.resolveGroup(ctx, img, group)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, group := range groups {
			r.resolveGroup(ctx, img, group)
		}
	}

	report := &Report{State: Ready}
	resolved := make(map[string]address.Resolved, len(order))
	failures := make(map[string]error)
	for _, group := range groups {
		for _, res := range group.resolved {
			resolved[res.Name] = res
			report.Resolved = append(report.Resolved, res)
		}
		for _, f := range group.failures {
			failures[f.Name] = f.Err
			report.Failures = append(report.Failures, f)
		}
	}
	report.sort(order)

	if len(report.Failures) > 0 {
		report.State = Degraded
	}

	r.resolved = resolved
	r.failures = failures
	r.report = report
	// publishes the maps above to lock-free readers
	r.state.Store(int32(report.State))

	r.log.Infoln("Resolution finished:", report.State, len(report.Resolved), "resolved,", len(report.Failures), "failed in", time.Since(start))

	return report, ctx.Err()
}

func groupByPattern(order []string, descriptors map[string]*address.Descriptor) []*patternGroup {
	var groups []*patternGroup
	byKey := make(map[string]*patternGroup)

	for _, name := range order {
		d := descriptors[name]
		key := d.Pattern.Key()

		group, ok := byKey[key]
		if !ok {
			group = &patternGroup{pattern: d.Pattern}
			byKey[key] = group
			groups = append(groups, group)
		}
		group.descriptors = append(group.descriptors, d)
	}

	return groups
}

func (r *Resolver) resolveGroup(ctx context.Context, img process.Image, group *patternGroup) {
	fail := func(d *address.Descriptor, err error) {
		r.log.Warn(fmt.Sprintf("Failed to resolve %s: %v", d.Name, err))
		group.failures = append(group.failures, Failure{Name: d.Name, Signature: d.Signature, Err: err})
	}

	if err := ctx.Err(); err != nil {
		for _, d := range group.descriptors {
			fail(d, err)
		}
		return
	}

	matches, err := signature.ScanImage(img, group.pattern)
	if err != nil {
		for _, d := range group.descriptors {
			fail(d, err)
		}
		return
	}

	r.log.Debugln("Pattern", group.pattern, "matched", len(matches), "times")

	for _, d := range group.descriptors {
		res, err := address.Locate(d, matches, img)
		if err != nil {
			fail(d, err)
			continue
		}
		r.log.Debugln("Resolved", d.Name, "to", res.Value)
		group.resolved = append(group.resolved, res)
	}
}
