package application

import (
	"context"

	"github.com/deploykit/dpm-cli/internal/domain"
	"go.uber.org/zap"
)

// DeployOptions carries the command-line overrides and the fallback
// identity from configuration. Flags beat the spec document, the spec
// document beats the configured defaults.
type DeployOptions struct {
	Name        string
	Org         string
	User        string
	DefaultOrg  string
	DefaultUser string
	Wait        bool
}

// DeployUseCase submits a project spec to the Deploy Manager and, when
// asked, hands off to the tracker until the deployment settles.
type DeployUseCase struct {
	gw      domain.DeployGateway
	out     domain.Narrator
	tracker *Tracker
	log     *zap.Logger
}

func NewDeployUseCase(gw domain.DeployGateway, out domain.Narrator, tracker *Tracker, log *zap.Logger) *DeployUseCase {
	return &DeployUseCase{gw: gw, out: out, tracker: tracker, log: log}
}

// Run deploys spec and returns whether the pipeline ran to completion.
// The returned error covers submission problems only; a deployment that
// fails remotely after a successful submission is narrated, not errored,
// since polling is observation-only.
func (uc *DeployUseCase) Run(ctx context.Context, spec domain.ProjectSpec, opts DeployOptions) (bool, error) {
	if opts.Name != "" {
		spec.Name = opts.Name
	}
	if opts.Org != "" {
		spec.UserRef = opts.Org
	}
	if opts.User != "" {
		spec.MemberRef = opts.User
	}

	ref := domain.ProjectRef{Name: spec.Name, Org: spec.UserRef, User: spec.MemberRef}
	if ref.Org == "" {
		ref.Org = opts.DefaultOrg
	}
	if ref.User == "" {
		ref.User = opts.DefaultUser
	}

	_, err := uc.gw.GetProject(ctx, ref)
	uc.out.Plain("")
	switch {
	case err == nil:
		uc.out.Progress("Updating existing project:")
	case domain.IsNotFound(err):
		uc.out.Progress("Deploying NEW project:")
	default:
		uc.out.Failure("Could not deploy project!")
		return false, err
	}

	uc.out.Plain("")
	uc.out.Plain("  Project Name: %s", ref.Name)
	uc.out.Plain("  Organization: %s", ref.Org)
	uc.out.Plain("  Owner:        %s", ref.User)
	uc.out.Plain("")
	uc.out.Plain("Safe to Ctrl+C at any time...")
	uc.out.Plain("")

	if _, err := uc.gw.DeployProject(ctx, spec); err != nil {
		uc.out.Failure("Deployment failed!")
		return false, err
	}

	p, err := uc.gw.GetProject(ctx, ref)
	if err != nil || p.LastRevision == nil {
		if err != nil {
			uc.log.Warn("post-deploy fetch failed", zap.String("project", ref.Name), zap.Error(err))
		}
		uc.out.Failure("Could not retrieve project details!")
		uc.out.Warn("Please check the project status in the Deploy Manager console!")
		return false, nil
	}
	uc.out.Success("Revision #%d created successfully!", p.LastRevision.Number)

	if !opts.Wait {
		return true, nil
	}
	uc.out.Progress("Waiting for project to be deployed...")
	return uc.tracker.WaitForDeployment(ctx, ref), nil
}
