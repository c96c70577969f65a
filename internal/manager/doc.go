// Package manager owns the loaded text-generation pipeline and coordinates
// requests against it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, Ready/Close.
//   - config.go: Config and package defaults.
//   - types.go: lifecycle State.
//   - errors.go: error types and helpers (IsTooBusy, IsNotReady,
//     IsConversationNotFound).
//   - load.go: asynchronous pipeline loading.
//   - admission.go: concurrency limit with bounded wait.
//   - generate.go: Generate and Converse entry points.
//   - status_report.go: Status reporting.
//
// External packages should treat this package as the orchestration layer and
// use public methods only.
package manager
