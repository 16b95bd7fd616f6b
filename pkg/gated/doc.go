// Package gated runs the credit-gated fetch lifecycle shared by the results
// pages.
//
// A Controller owns the view state of one page for one user. Each Run:
//
//  1. does nothing when a required query parameter is missing
//  2. resets the view state to loading
//  3. checks the user's credits against the page cost
//  4. runs the page's fetch tasks concurrently and waits for all of them,
//     or for the first failure
//  5. deducts the cost once every task succeeded
//  6. commits data or a short error message
//
// Every Run takes a new generation token. A run whose token is no longer
// current when it finishes is discarded, so a slow search can never
// overwrite the results of a newer one. A discarded run that was already
// charged is refunded.
//
// Example usage:
//
//	ctrl := gated.New(pages.KeywordOverview(svc), ledger.Account(userID), gated.DefaultConfig())
//	ctrl.Navigate(ctx, params)
//	state := ctrl.Snapshot()
package gated
