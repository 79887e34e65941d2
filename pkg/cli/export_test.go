package cli

var PrintChannels = printChannels
