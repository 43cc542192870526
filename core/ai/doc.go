// Package ai defines the provider-agnostic data model shared by every
// adapter: messages and their content parts, generation requests and
// options, responses with usage and finish reasons, the typed model
// interfaces (language, embedding, image, speech, transcription), and the
// block-structured stream event sequence.
//
// Message content is a closed sum ([Part] with a Kind discriminator);
// adapters translate it to and from their wire protocols and must preserve
// part order end-to-end. Streams are lazy single-consumer sequences built on
// iter.Seq2; see [Stream] for the consumption contract.
package ai
