// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that mirrors the Postgres, S3 and Redis adapters
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for setting state directly
//
// # Usage Example
//
//	func TestPartitioner(t *testing.T) {
//		store := mocks.NewSegmentStore()
//		store.Ignore(domain.ItemTypeChannel, "UC123")
//
//		p := segments.NewPartitioner(store, store, segments.Options{}, nil)
//		// ... test partitioner behavior
//	}
//
// # Available Mocks
//
//   - PageSource: implements ports.PageSource
//   - SegmentStore: implements ports.SegmentRepository and ports.IgnoreRepository
//   - BadWords: implements ports.BadWordRepository
//   - Trackers: implements ports.TrackerRepository, ports.TopicRepository and ports.LockRepository
//   - CustomSegments: implements ports.CustomSegmentRepository and ports.AuditRepository
//   - ObjectStore: implements ports.ObjectStore
//   - TaskQueue: implements ports.TaskQueue
package mocks
