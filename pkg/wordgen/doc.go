/*
Package wordgen builds statistical models of how short letter sequences chain
together in a language, and uses them to synthesize new, plausible-looking
words that feel like the source dictionary without copying it.

A Model is built once from a dictionary, is read-only afterwards, and can be
persisted either as a JSON snapshot or as a named model in a SQLite database.
A Generator performs a constrained weighted random walk over the model,
producing words within a length range, one at a time, in batches, or as an
endless lazy sequence.
*/
package wordgen
