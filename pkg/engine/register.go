package engine

import (
	"time"

	"stint/pkg/dispatch"
	"stint/pkg/store"
)

// RegisterAll populates the command table. The registry is only written
// here, during start-up; afterwards it is a closed table.
func RegisterAll(r *dispatch.Registry, cfg Config) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// bind constructs the per-request Engine over the transaction and
	// effects buffer the middleware chain attached to the context.
	bind := func(rc *dispatch.Context) *Engine {
		return &Engine{
			st:             store.New(rc.Tx),
			nowFunc:        now,
			connID:         rc.ConnID,
			effects:        rc.Effects,
			dehydrationDir: cfg.DehydrationDir,
		}
	}

	dispatch.Register(r, "project.upsert", func(rc *dispatch.Context, a ProjectUpsertArgs) (any, error) {
		return bind(rc).ProjectUpsert(rc.Ctx, a)
	})
	dispatch.Register(r, "task.upsert", func(rc *dispatch.Context, a TaskUpsertArgs) (any, error) {
		return bind(rc).TaskUpsert(rc.Ctx, a)
	})

	dispatch.Register(r, "effort.start", func(rc *dispatch.Context, a EffortStartArgs) (any, error) {
		return bind(rc).EffortStart(rc.Ctx, a)
	})
	dispatch.Register(r, "effort.finish", func(rc *dispatch.Context, a EffortFinishArgs) (any, error) {
		return bind(rc).EffortFinish(rc.Ctx, a)
	})
	dispatch.Register(r, "effort.list", func(rc *dispatch.Context, a EffortListArgs) (any, error) {
		return bind(rc).EffortList(rc.Ctx, a)
	})
	dispatch.Register(r, "effort.get", func(rc *dispatch.Context, a EffortGetArgs) (any, error) {
		return bind(rc).EffortGet(rc.Ctx, a)
	})
	dispatch.Register(r, "effort.findActive", func(rc *dispatch.Context, a EffortFindActiveArgs) (any, error) {
		return bind(rc).EffortFindActive(rc.Ctx, a)
	})
	dispatch.Register(r, "effort.getMetadata", func(rc *dispatch.Context, a EffortGetMetadataArgs) (any, error) {
		return bind(rc).EffortGetMetadata(rc.Ctx, a)
	})
	dispatch.Register(r, "effort.updateMetadata", func(rc *dispatch.Context, a EffortUpdateMetadataArgs) (any, error) {
		return bind(rc).EffortUpdateMetadata(rc.Ctx, a)
	})

	dispatch.Register(r, "session.start", func(rc *dispatch.Context, a SessionStartArgs) (any, error) {
		return bind(rc).SessionStart(rc.Ctx, a)
	})
	dispatch.Register(r, "session.finish", func(rc *dispatch.Context, a SessionFinishArgs) (any, error) {
		return bind(rc).SessionFinish(rc.Ctx, a)
	})
	dispatch.Register(r, "session.heartbeat", func(rc *dispatch.Context, a SessionHeartbeatArgs) (any, error) {
		return bind(rc).SessionHeartbeat(rc.Ctx, a)
	})
	dispatch.Register(r, "session.find", func(rc *dispatch.Context, a SessionFindArgs) (any, error) {
		return bind(rc).SessionFind(rc.Ctx, a)
	})
	dispatch.Register(r, "session.get", func(rc *dispatch.Context, a SessionGetArgs) (any, error) {
		return bind(rc).SessionGet(rc.Ctx, a)
	})
	dispatch.Register(r, "session.updateContextUsage", func(rc *dispatch.Context, a SessionContextUsageArgs) (any, error) {
		return bind(rc).SessionUpdateContextUsage(rc.Ctx, a)
	})
	dispatch.Register(r, "session.updateLoadedFiles", func(rc *dispatch.Context, a SessionLoadedFilesArgs) (any, error) {
		return bind(rc).SessionUpdateLoadedFiles(rc.Ctx, a)
	})
	dispatch.Register(r, "session.updatePreloadedFiles", func(rc *dispatch.Context, a SessionPreloadedFilesArgs) (any, error) {
		return bind(rc).SessionUpdatePreloadedFiles(rc.Ctx, a)
	})
	dispatch.Register(r, "session.updateInjections", func(rc *dispatch.Context, a SessionInjectionsArgs) (any, error) {
		return bind(rc).SessionUpdateInjections(rc.Ctx, a)
	})
	dispatch.Register(r, "session.getInjections", func(rc *dispatch.Context, a SessionGetInjectionsArgs) (any, error) {
		return bind(rc).SessionGetInjections(rc.Ctx, a)
	})
	dispatch.Register(r, "session.setTranscript", func(rc *dispatch.Context, a SessionSetTranscriptArgs) (any, error) {
		return bind(rc).SessionSetTranscript(rc.Ctx, a)
	})

	dispatch.Register(r, "agents.register", func(rc *dispatch.Context, a AgentRegisterArgs) (any, error) {
		return bind(rc).AgentRegister(rc.Ctx, a)
	})
	dispatch.Register(r, "agents.get", func(rc *dispatch.Context, a AgentGetArgs) (any, error) {
		return bind(rc).AgentGet(rc.Ctx, a)
	})
	dispatch.Register(r, "agents.list", func(rc *dispatch.Context, a AgentListArgs) (any, error) {
		return bind(rc).AgentList(rc.Ctx, a)
	})
	dispatch.Register(r, "agents.updateStatus", func(rc *dispatch.Context, a AgentUpdateStatusArgs) (any, error) {
		return bind(rc).AgentUpdateStatus(rc.Ctx, a)
	})
	dispatch.Register(r, "agents.findByEffort", func(rc *dispatch.Context, a AgentFindByEffortArgs) (any, error) {
		return bind(rc).AgentFindByEffort(rc.Ctx, a)
	})

	dispatch.Register(r, "messages.append", func(rc *dispatch.Context, a MessageAppendArgs) (any, error) {
		return bind(rc).MessageAppend(rc.Ctx, a)
	})
	dispatch.Register(r, "messages.list", func(rc *dispatch.Context, a MessageListArgs) (any, error) {
		return bind(rc).MessageList(rc.Ctx, a)
	})
	dispatch.Register(r, "messages.upsert", func(rc *dispatch.Context, a MessageUpsertArgs) (any, error) {
		return bind(rc).MessageUpsert(rc.Ctx, a)
	})

	dispatch.Register(r, "engine.resolve", func(rc *dispatch.Context, a ResolveArgs) (any, error) {
		return bind(rc).Resolve(rc.Ctx, a)
	})
}
