// Package promote turns validated staging records into production entities.
// Each import runs in one transaction so a failure leaves no partial event
// behind; the record is rolled back to pending with the cause recorded.
package promote
