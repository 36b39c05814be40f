package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/exitcode"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
	"github.com/rflorenc/scm-migration-workbench/internal/platform"
	"github.com/rflorenc/scm-migration-workbench/internal/store"
)

// Report kinds.
const (
	KindProject = "project"
	KindGroup   = "group"
)

// Kinds lists every verifiable kind in report order.
var Kinds = []string{KindProject, KindGroup}

func (s *Service) plan(kind string) (kindPlan, error) {
	switch kind {
	case KindProject:
		return kindPlan{
			Kind:       KindProject,
			Staged:     store.StagedProjects,
			PathField:  "path_with_namespace",
			Endpoints:  ProjectEndpoints,
			IgnoreKeys: s.ignoreKeys(projectKeysToIgnore),
		}, nil
	case KindGroup:
		return kindPlan{
			Kind:       KindGroup,
			Staged:     store.StagedGroups,
			PathField:  "full_path",
			Endpoints:  GroupEndpoints,
			IgnoreKeys: s.ignoreKeys(groupKeysToIgnore),
		}, nil
	}
	return kindPlan{}, exitcode.Wrap(exitcode.Usage, fmt.Errorf("unknown report kind %q", kind))
}

func (s *Service) ignoreKeys(defaults []string) []string {
	if len(s.opts.KeysToIgnore) > 0 {
		return s.opts.KeysToIgnore
	}
	return defaults
}

// Verify compares every staged entity of each kind between src and dst,
// persists one report per kind and renders it to HTML.
func (s *Service) Verify(ctx context.Context, src, dst *models.Connection, kinds ...string) ([]*diff.Report, error) {
	if src == nil || dst == nil {
		return nil, exitcode.Wrap(exitcode.Config, errors.New("verification needs a source and a destination connection"))
	}
	if len(kinds) == 0 {
		kinds = Kinds
	}
	srcClient := platform.NewClient(src)
	dstClient := platform.NewClient(dst)

	var reports []*diff.Report
	for _, kind := range kinds {
		plan, err := s.plan(kind)
		if err != nil {
			return nil, err
		}
		report, err := s.verifyKind(ctx, plan, srcClient, dstClient, dst.ParentGroupPath)
		if err != nil {
			return nil, err
		}
		if err := s.store.WriteReport(ctx, report); err != nil {
			return nil, fmt.Errorf("saving %s report: %w", kind, err)
		}
		if path := s.HTMLPath(kind); path != "" {
			if err := report.WriteHTML(path); err != nil {
				return nil, fmt.Errorf("rendering %s report: %w", kind, err)
			}
			s.log.Info("wrote report", "kind", kind, "path", path)
		}
		s.log.Info("verification finished", "kind", kind,
			"entities", len(report.Entities),
			"successful", report.Successful(),
			"accuracy", diff.AsPercentage(report.Summary.OverallAccuracy),
			"result", report.Summary.Result)
		reports = append(reports, report)
	}
	return reports, nil
}

// Report reads a persisted report back.
func (s *Service) Report(ctx context.Context, kind string) (*diff.Report, error) {
	if _, err := s.plan(kind); err != nil {
		return nil, err
	}
	return s.store.ReadReport(ctx, kind)
}

func (s *Service) verifyKind(ctx context.Context, plan kindPlan, src, dst *platform.Client, parentGroup string) (*diff.Report, error) {
	staged, err := s.store.ListAll(ctx, plan.Staged)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", plan.Staged, err)
	}
	s.log.Info("verifying staged entities", "kind", plan.Kind, "count", len(staged))

	report := diff.NewReport(plan.Kind)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Processes)
	for _, rec := range staged {
		rec := rec
		g.Go(func() error {
			key := rec.String(plan.PathField)
			if key == "" {
				key = rec.ID().String()
			}
			e, err := s.verifyEntity(gctx, plan, rec, src, dst, parentGroup)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log.Error("verification failed", "kind", plan.Kind, "entity", key, "error", err)
				e = diff.NewEntityReport()
				e.Error = err.Error()
				e.Overall = diff.Accuracy{Accuracy: 0, Result: diff.Failure}
			}
			mu.Lock()
			report.Add(key, e)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Finalize()
	return report, nil
}

func (s *Service) verifyEntity(ctx context.Context, plan kindPlan, rec models.Resource, src, dst *platform.Client, parentGroup string) (*diff.EntityReport, error) {
	path := rec.String(plan.PathField)
	destPath := destinationPath(parentGroup, path)

	result, found, err := s.store.GetByID(ctx, store.ImportResults, models.ID(destPath))
	if err != nil && !errors.Is(err, store.ErrNoCollection) {
		return nil, fmt.Errorf("reading import result for %s: %w", destPath, err)
	}
	if !found {
		result = nil
	}
	outcome, dstID := interpretImport(result)
	switch outcome {
	case importMissing:
		s.log.Warn("entity missing on destination", "kind", plan.Kind, "path", destPath)
		return diff.MissingEntity(plan.Kind), nil
	case importAlreadyMigrated:
		s.log.Info("entity already migrated", "kind", plan.Kind, "path", destPath)
		return diff.AlreadyMigrated(plan.Kind), nil
	}

	e := diff.NewEntityReport()
	for _, ep := range plan.Endpoints {
		srcVal, err := src.GetValue(ctx, ep.URL(rec.ID()))
		if platform.IsNotFound(err) {
			srcVal, err = nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", ep.Path, err)
		}
		dstVal, err := dst.GetValue(ctx, ep.URL(dstID))
		if platform.IsNotFound(err) {
			dstVal, err = diff.MissingAsset(srcVal, ep.Path), nil
		}
		if err != nil {
			return nil, fmt.Errorf("destination %s: %w", ep.Path, err)
		}

		srcVal = diff.IgnoreKeys(srcVal, plan.IgnoreKeys)
		dstVal = diff.IgnoreKeys(dstVal, plan.IgnoreKeys)
		res := s.scorer.Diff(srcVal, dstVal, diff.Options{
			CriticalKey: ep.CriticalKey,
			Obfuscate:   ep.Obfuscate,
			ParentGroup: parentGroup,
		})
		e.SetEndpoint(ep.Path, res)

		if ep.Count != "" {
			e.SetCount(ep.Count, countOf(srcVal), countOf(dstVal))
		}
	}
	if s.opts.StrictCounts {
		diff.ProblematicFieldsAccuracy(e)
	}
	e.Finalize()
	s.log.Debug("verified entity", "kind", plan.Kind, "path", path, "accuracy", e.Overall.Accuracy)
	return e, nil
}

// countOf counts list elements, ignoring missing-asset markers.
func countOf(v interface{}) int {
	list, ok := v.([]interface{})
	if !ok {
		return 0
	}
	n := 0
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			if _, marker := m[diff.ErrorKey]; marker && len(m) == 1 {
				continue
			}
		}
		n++
	}
	return n
}

// KeysToIgnore returns the effective ignore list per kind.
func (s *Service) KeysToIgnore() map[string][]string {
	return map[string][]string{
		KindProject: s.ignoreKeys(projectKeysToIgnore),
		KindGroup:   s.ignoreKeys(groupKeysToIgnore),
	}
}
