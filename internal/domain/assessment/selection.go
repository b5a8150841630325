package assessment

import "github.com/okian/bethegolf/internal/domain/model"

// NextSelection applies one pick to the current most/least state. The rules
// form a strict priority chain evaluated top to bottom:
//
//  1. most empty                     -> most = key
//  2. least empty and key != most    -> least = key
//  3. key == most                    -> clear both slots
//  4. key == least                   -> clear least
//  5. otherwise (third option)       -> least = key, most stays
//
// The result depends only on (cur, key), so Most != Least always holds.
func NextSelection(cur model.Selection, key string) model.Selection {
	switch {
	case cur.Most == "":
		// least is always empty here unless the caller built the state by
		// hand; never let both slots hold the same key.
		if cur.Least == key {
			return model.Selection{Most: key}
		}
		return model.Selection{Most: key, Least: cur.Least}
	case cur.Least == "" && key != cur.Most:
		return model.Selection{Most: cur.Most, Least: key}
	case key == cur.Most:
		return model.Selection{}
	case key == cur.Least:
		return model.Selection{Most: cur.Most}
	default:
		return model.Selection{Most: cur.Most, Least: key}
	}
}
