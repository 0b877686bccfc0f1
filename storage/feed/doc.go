/*
Package feed defines the client side data model of Swarm Feeds.

A Feed is the series of updates published by a specific user about a
particular Topic. Updates are signed by the feed owner and stored by the
gateway under a predictable, versionable address, so that anyone knowing the
Topic and the user address can look up the latest one.

The gateway tells a publisher which Epoch the next update must target
(see Metadata); the publisher then signs the digest of

	updatedata = Header|Feed|Epoch|data

and posts the signature together with the data. The digest is computed by
Digest and never depends on anything but its inputs.

Structure Summary:

Metadata: what the gateway reports about a feed before an update
	Feed: Represents a user's series of publications about a specific Topic
		Topic: Item that the updates are about
		User: User who updates the Feed
	Epoch: time slot where the next update is stored
	ProtocolVersion: header version the update must be signed with
ID: Feed and Epoch, the information needed to locate a specific update

Signatures are never produced in this package; see Signer and GenericSigner.
*/
package feed
