package document

// defaultDocumentYAML is the compiled-in seed document copied to
// dbFolder/userdb.edn on first run when the primary file is missing
// (§4.2). It defines only the two mandatory groups and nothing else;
// operators add rooms and members from there.
const defaultDocumentYAML = `groups:
  group/owner: Owner
  group/bot: Bot
rooms: []
members: []
do-not-edit-state:
  managed-members: []
  managed-room-ids: []
  managed-groups: []
`
