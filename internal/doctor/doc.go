// Package doctor runs diagnostic checks on the configuration, the backup
// directory and the save directories nmsio works on.
//
// Each [Check] returns a [CheckResult] with a [Severity]. A [Runner] runs
// the registered checks in order and counts the results by severity:
//
//	r := doctor.NewRunner()
//	r.SetTarget(doctor.Target{Platform: p.Kind().String(), Dir: p.Root()})
//	r.AddCheck(doctor.NewConfigCheck(path))
//	r.AddCheck(doctor.NewSaveDirectoryCheck(p))
//	report := r.Run()
//
// Checks that also implement [Fixer] can repair what they found, e.g.
// create a missing backup directory or make read-only save files
// writable again. [Runner.Fix] applies every pending fix; run again
// afterwards to see what is left.
package doctor
