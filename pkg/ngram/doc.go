/*
Package ngram implements a word-level n-gram statistical language model with
frequency-based unknown-token handling and categorical sampling.

A Model is trained on raw text: the text is lowercased, split into sentences
on terminal punctuation, and tokenized into word runs. Tokens whose raw
corpus frequency falls below the configured minimum count are rewritten to
the unknown marker before counting. Generation slides a context window over
the trained tables and draws each next token by inverse-CDF sampling over an
insertion-ordered histogram, so a fixed seed reproduces a sequence exactly.

Models can be persisted to SQLite through a Store or exported as JSON; both
round trips preserve histogram order and therefore the sampling contract.

A trained Model is safe for concurrent generation: generation never mutates
the model, and every call owns its own context window and random source.
Training mutates the tables and must not run concurrently with any other
call on the same model without external synchronization.
*/
package ngram
