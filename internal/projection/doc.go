// Package projection maintains the latest-wins current-price table.
//
// One row per (instance type, product description, availability zone) key;
// a row only ever moves forward in time. Applying the full observation
// history in any order yields the observation with the maximum timestamp
// per key.
package projection
