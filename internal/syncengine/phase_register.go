package syncengine

import "context"

// registerUsers is phase 5: for each new user-id, check whether the
// remote already knows it (skip with already-exists if so), else
// register it with a generated password (§4.5).
func (e *Engine) registerUsers(ctx context.Context, d diff, report *Report) {
	if len(d.usersToAdd) == 0 {
		return
	}

	existing, err := e.Client.RegisteredUsers(ctx)
	if err != nil {
		report.add("api-error", "listing registered users: %v", err)
		existing = nil
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, u := range existing {
		existingSet[u] = struct{}{}
	}

	for _, userID := range d.usersToAdd {
		if _, ok := existingSet[userID]; ok {
			report.add("user-already-exists", userID)
			continue
		}

		password, err := e.generatePassword()
		if err != nil {
			report.add("api-error", "generating password for %s: %v", userID, err)
			continue
		}
		if err := e.Client.Register(ctx, userID, password); err != nil {
			report.add("api-error", "registering %s: %v", userID, err)
			continue
		}
		report.add("user-registered", userID)
	}
}
