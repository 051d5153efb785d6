package sqlinline

const QHealthPing = `--sql f3ffd333-7e7a-42da-be58-ad8bf4e0088d
select 1;
`
