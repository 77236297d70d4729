// Package stream emits a text payload incrementally over a long-lived connection.
//
// A Transport resolves the subject, writes the narrative once, splits it into
// chunks and hands back a Stream. The Stream is lazy, finite and not
// restartable: every Next call waits a small randomized delay and returns the
// following chunk, io.EOF once the text is exhausted, or the cancellation
// error once the caller's context ends or Close is called. No chunk is ever
// returned after cancellation has been observed, and the pacing timer is
// stopped as soon as it is no longer needed.
//
// Concatenating every chunk a Stream returns yields its Text exactly.
package stream
