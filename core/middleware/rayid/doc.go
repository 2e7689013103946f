// Package rayid tags every request with a ray id.
//
// The id is taken from the X-Ray-ID request header or generated with uuid,
// stored in the fiber locals for logger.WithRayID and echoed on the response.
package rayid
