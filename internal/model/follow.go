package model

import "time"

// Follow is a directed edge: FollowerID follows FollowingID.
// The (follower_id, following_id) pair is UNIQUE in the database — there are
// no duplicate edges and no intermediate states, only present or absent.
type Follow struct {
	ID          string    `json:"id"`
	FollowerID  string    `json:"followerId"`
	FollowingID string    `json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}
