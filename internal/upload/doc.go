// Package upload pushes matched media items to the asset store in bounded
// concurrent batches and links each uploaded asset to its record.
//
// Batches run strictly one after another; inside a batch every item is
// processed concurrently and the Coordinator joins on the whole batch before
// starting the next, so in-flight remote requests never exceed BatchSize.
// Item failures are captured in Outcomes and never stop other items. A batch
// that has started always finishes; cancellation is honored between batches.
package upload
