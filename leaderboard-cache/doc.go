// Ranked leaderboard lists cached with a short TTL, keyed by period,
// category and region.
//
// Includes an interface and implementations using redis and in-process memory.
// Writes invalidate by key prefix; readers may see a list up to one TTL old.
package lbcache
