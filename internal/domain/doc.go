// Package domain contains the core business entities of the flashcard
// service: users, card sets, and preferences, together with their
// validation rules. It is independent of any storage or transport.
package domain
