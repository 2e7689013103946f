// Package dumpsource reads inventories from YAML dump files.
//
// Each file in the dump directory describes one scope:
//
//	scope: retainer:42
//	containers:
//	  retainer_page1:
//	    - {slot: 0, item: 5111, quantity: 99, hq: true}
//	    - {slot: 3, item: 4551, quantity: 12}
//	order:
//	  retainer_page1: [1, 0, 2, 3]
//
// Source serves the files as a container reader, an ordering source and a
// dirty notifier. A file is parsed again whenever its modification time
// changes. Watch follows the directory with fsnotify: a written file marks all
// of its containers dirty and registers its scope when new, a removed file
// suspends its scope. A file that now holds another scope suspends the old one.
package dumpsource
