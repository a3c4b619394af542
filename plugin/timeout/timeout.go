// Package timeout defines centralized timeout constants for session operations.
// Package timeout 定义会话操作的集中式超时常量。
package timeout

import "time"

// Analysis polling constants.
// 分析轮询常量。
const (
	// DefaultPollInterval is the interval between two result fetches.
	// DefaultPollInterval 是两次结果拉取之间的间隔。
	DefaultPollInterval = 10 * time.Second

	// MinPollInterval is the smallest interval accepted outside of tests.
	MinPollInterval = 10 * time.Second

	// DefaultGraceWindow is how long polling waits without new valid results before forcing completion.
	// DefaultGraceWindow 是在没有新结果时强制完成前的等待时间。
	DefaultGraceWindow = 30 * time.Second

	// DefaultHardTimeout is the absolute polling ceiling.
	// DefaultHardTimeout 是轮询的绝对上限。
	DefaultHardTimeout = 600 * time.Second
)

// Capture and collaborator constants.
// 采集与外部协作方常量。
const (
	// DefaultTimeslice is how often the encoder emits a chunk.
	DefaultTimeslice = time.Second

	// CollaboratorTimeout bounds a single AI, speech or storage call.
	// CollaboratorTimeout 是单次 AI、语音或存储调用的超时时间。
	CollaboratorTimeout = 30 * time.Second

	// UploadTimeout bounds the upload of a finalized recording.
	UploadTimeout = 5 * time.Minute

	// FeedbackTimeout bounds the fire-and-forget feedback request.
	FeedbackTimeout = 2 * time.Minute

	// TurnBoundaryTimeout bounds how long End waits for an in-flight turn.
	// TurnBoundaryTimeout 是结束会话时等待进行中回合的最长时间。
	TurnBoundaryTimeout = 2 * time.Minute
)

// Retry and failure limits.
// 重试与失败上限。
const (
	// DefaultAnalysisAttempts is the number of attempts made to trigger analysis.
	DefaultAnalysisAttempts = 3

	// AnalysisRetryBase is the first backoff interval between trigger attempts.
	AnalysisRetryBase = 2 * time.Second

	// AnalysisRetryMax caps the backoff interval between trigger attempts.
	AnalysisRetryMax = 30 * time.Second

	// MaxTurnFailures is the maximum number of consecutive transcription failures before the turn engine fails.
	// MaxTurnFailures 是转写连续失败的最大次数，超过后回合引擎进入失败状态。
	MaxTurnFailures = 3

	// MaxSegmentFanout bounds concurrent per-segment analysis triggers.
	MaxSegmentFanout = 4

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	// MaxTruncateLength 是日志中字符串截断的最大长度。
	MaxTruncateLength = 200
)
