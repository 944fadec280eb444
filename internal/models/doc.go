// Package models defines the core domain models for the Ajo ledger.
//
// # Entities
//
//   - Group: a rotating savings circle with a fixed contribution amount,
//     cadence, duration and member cap
//   - Member: a user's membership in a group, carrying the payment position
//     that fixes their payout cycle
//   - Contribution: one member's payment obligation for one cycle
//   - Distribution: the payout of a cycle's collected funds to the member
//     holding that cycle's position
//   - Invitation: a pending invite that feeds Member creation
//   - User: a registered account (auth boundary only)
//
// # Design principles
//
//  1. Every status field is a closed typed string with named constants;
//     transitions happen only through the service operations, never by
//     direct field assignment.
//  2. Relationships use ID strings, not pointers, to avoid circular
//     references.
//  3. Timestamps are Unix seconds (int64) except dates with calendar
//     semantics (due dates, start dates), which are time.Time values at
//     day precision.
package models
