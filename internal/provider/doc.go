// Package provider defines the cloud pricing provider boundary consumed by
// the ingestion core, and the AWS EC2 implementation of it.
//
// The core only sees PricingProvider: region listing, instance type
// catalog paging, and spot price history paging with continuation tokens.
package provider
