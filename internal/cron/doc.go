// Package cron installs and removes the periodic touch job in a user crontab.
//
// Jobs are identified by the trailing "# <comment>" tag on their crontab
// line. Installing a job first removes every line carrying the same tag, so
// repeated installs leave exactly one entry. Schedules are validated with
// robfig/cron before anything is written.
package cron
