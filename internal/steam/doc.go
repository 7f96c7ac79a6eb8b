// Package steam queries the Steam Web API for workshop item metadata.
//
// Two backends cover the same contract (a batch of workshop ids in, a
// per-id result out): IPublishedFileService/GetDetails when an API key is
// configured, and the keyless ISteamRemoteStorage/GetPublishedFileDetails
// fallback. The Fetcher layers batching, bounded retry with exponential
// backoff, and rate-limit pauses on top of whichever backend was chosen.
package steam
